package api

import (
	"github.com/luowst/fanarchive/app/database"
	"github.com/luowst/fanarchive/app/settings"
	"github.com/luowst/fanarchive/app/tasks"
)

type Handler struct {
	runner tasks.TaskRunnerInterface
	repo   database.HistoryRepository
	store  *settings.Store
}

// startRequest is the task start payload.
type startRequest struct {
	Type   string       `json:"type"`
	Params tasks.Params `json:"params"`
}

// settingsRequest carries a partial settings update. Pointer fields
// distinguish "absent" from zero values.
type settingsRequest struct {
	CredentialKey    *string `json:"credential_key"`
	CredentialToken  *string `json:"credential_token"`
	SavePath         *string `json:"save_path"`
	AutoDedup        *bool   `json:"auto_dedup"`
	NotifyOnComplete *bool   `json:"notify_on_complete"`
}
