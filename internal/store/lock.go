package store

import (
	"time"
)

// WorkerLockName identifies the single lease that serializes cycle execution
// across every worker process sharing the database.
const WorkerLockName = "worker_cycle"

// AcquireLock takes the named lease for owner until now+ttl. It is
// non-blocking: it reports false when another live holder owns the lease.
// The current holder may re-acquire its own lease, which renews the TTL, and
// an expired lease is taken over regardless of who held it — that is the
// crash-recovery path, since a killed process never releases explicitly.
func (d *Database) AcquireLock(name, owner string, ttl time.Duration) (bool, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	result := d.db.Model(&WorkerLock{}).
		Where("name = ? AND (owner = ? OR expires_at <= ?)", name, owner, now).
		Updates(map[string]interface{}{
			"owner":      owner,
			"expires_at": expiresAt,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// Either the row does not exist yet, or a live holder owns it. Creating
	// the row decides which: the unique index on name rejects the insert when
	// a holder is present.
	err := d.db.Create(&WorkerLock{Name: name, Owner: owner, ExpiresAt: expiresAt}).Error
	if err != nil {
		return false, nil
	}
	return true, nil
}

// ReleaseLock ends the lease immediately by expiring it. Only the current
// owner's release has any effect.
func (d *Database) ReleaseLock(name, owner string) error {
	return d.db.Model(&WorkerLock{}).
		Where("name = ? AND owner = ?", name, owner).
		Update("expires_at", time.Now()).Error
}
