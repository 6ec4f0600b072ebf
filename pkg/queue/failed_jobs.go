package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/adityaraj/bazario/pkg/logger"
)

// FailedJobRecord is the dead-letter row written when a job runs out of
// retries. The table is auto-migrated by UseDB.
type FailedJobRecord struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	JobType  string    `gorm:"size:255;not null;index"`
	Payload  string    `gorm:"type:text;not null"`
	Error    string    `gorm:"type:text"`
	Attempts int       `gorm:"not null;default:0"`
	FailedAt time.Time `gorm:"autoCreateTime"`
}

func (FailedJobRecord) TableName() string { return "failed_jobs" }

// deadLetterDB persists exhausted jobs when set; nil keeps them in memory
// only.
var deadLetterDB *gorm.DB

// UseDB turns on database persistence for failed jobs. Call once at boot,
// after the connection is up.
func UseDB(db *gorm.DB) {
	deadLetterDB = db
	db.AutoMigrate(&FailedJobRecord{})
}

func (m *manager) persistFailed(job Job, typeName string, lastErr error, attempts int) {
	m.mu.Lock()
	m.failed = append(m.failed, FailedJob{
		Job: job, Err: lastErr, FailedAt: time.Now(), Attempts: attempts,
	})
	m.mu.Unlock()

	if deadLetterDB == nil {
		return
	}

	payload, err := json.Marshal(job)
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"error": "could not marshal: %v"}`, err))
	}

	row := FailedJobRecord{
		JobType:  typeName,
		Payload:  string(payload),
		Error:    lastErr.Error(),
		Attempts: attempts,
		FailedAt: time.Now(),
	}
	if err := deadLetterDB.Create(&row).Error; err != nil {
		// The in-memory list still holds the failure.
		logger.Error("queue: persist failed job", "type", typeName, "error", err)
	}
}
