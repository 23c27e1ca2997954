package api

import (
	"github.com/kmnkit/vietnamese-word-cards/internal/db"
	"github.com/kmnkit/vietnamese-word-cards/internal/services"
)

// Server is the reference collaborator the progress engine syncs with.
type Server struct {
	DB              *db.DB
	ProgressService services.ProgressService
	SessionService  services.SessionService
	AllowedOrigins  []string
}
