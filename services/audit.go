package services

import (
	"strings"
	"time"

	"github.com/itsivali/virtual-butler/database"
	"github.com/itsivali/virtual-butler/models"
	"github.com/itsivali/virtual-butler/utils"
)

// redactedMask replaces sensitive values before they reach storage.
const redactedMask = "[REDACTED]"

// Auditor appends lifecycle and security events to the audit log. Writes are
// best-effort: a failed insert is logged and swallowed so it can never fail
// the operation being audited.
type Auditor struct {
	store *database.Store
}

func NewAuditor(store *database.Store) *Auditor {
	return &Auditor{store: store}
}

// Record anonymizes data and appends one audit entry.
func (a *Auditor) Record(event string, data map[string]interface{}) {
	entry := models.AuditLogEntry{
		Event:     event,
		Data:      models.JSONMap(Anonymize(data)),
		Timestamp: time.Now(),
	}
	if err := a.store.DB.Create(&entry).Error; err != nil {
		utils.Log.Error().Err(err).Str("event", event).Msg("audit write failed")
	}
}

// Anonymize masks the value of any key containing "pin" or "token". The
// match is a case-sensitive substring check, so "access_token" and
// "room_pin" are both caught while "PIN" passes through untouched.
func Anonymize(data map[string]interface{}) map[string]interface{} {
	masked := make(map[string]interface{}, len(data))
	for k, v := range data {
		if strings.Contains(k, "pin") || strings.Contains(k, "token") {
			masked[k] = redactedMask
			continue
		}
		masked[k] = v
	}
	return masked
}
