package biz

import (
	"github.com/deadraisers/riri/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Activity   *usecase.ActivityStore
	Gate       *usecase.GateUsecase
	Limiter    *usecase.RateLimiter
	Completion *usecase.CompletionUsecase
	Command    *usecase.CommandUsecase
}
