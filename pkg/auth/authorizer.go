package auth

import "log/slog"

// Authorizer gates the bot to an allow list of telegram user IDs. An empty
// list locks everyone out, which is the safe default for a bot that holds
// API keys.
type Authorizer struct {
	allowed map[int64]struct{}
}

func NewAuthorizer(userIDs []int64) *Authorizer {
	allowed := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		allowed[id] = struct{}{}
	}

	slog.Info("telegram allow list initialized", "users", len(allowed))

	return &Authorizer{allowed: allowed}
}

func (a *Authorizer) IsAuthorized(userID int64) bool {
	_, ok := a.allowed[userID]
	return ok
}
