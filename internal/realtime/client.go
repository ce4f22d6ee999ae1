package realtime

import (
	"github.com/google/uuid"

	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

// SSEClient is one connected stream. Outbound is closed by CloseClient.
type SSEClient struct {
	ID       uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	Logger   *logger.Logger
}
