// Where: internal/domain/service/invoke.go
// What: InvokeStrategy model and its consistency rules.
// Why: Field names follow the Fission CRD (PascalCase).
package service

import "fmt"

const (
	StrategyTypeExecution = "execution"

	ExecutorTypePoolmgr   = "poolmgr"
	ExecutorTypeNewdeploy = "newdeploy"
	ExecutorTypeContainer = "container"
)

type InvokeStrategy struct {
	StrategyType      string            `json:"StrategyType"`
	ExecutionStrategy ExecutionStrategy `json:"ExecutionStrategy"`
}

type ExecutionStrategy struct {
	ExecutorType          string `json:"ExecutorType"`
	MinScale              int    `json:"MinScale,omitempty"`
	MaxScale              int    `json:"MaxScale,omitempty"`
	TargetCPUPercent      int    `json:"TargetCPUPercent,omitempty"`
	SpecializationTimeout int    `json:"SpecializationTimeout,omitempty"`
}

// DefaultInvokeStrategy is applied when neither the template nor the
// function sets invokeStrategy.
func DefaultInvokeStrategy() InvokeStrategy {
	return InvokeStrategy{
		StrategyType: StrategyTypeExecution,
		ExecutionStrategy: ExecutionStrategy{
			ExecutorType: ExecutorTypePoolmgr,
		},
	}
}

// Validate checks that the strategy and executor agree. It never fills in
// missing values.
func (s InvokeStrategy) Validate() error {
	if s.StrategyType == "" {
		return fmt.Errorf("StrategyType is required")
	}
	if s.StrategyType != StrategyTypeExecution {
		return fmt.Errorf("unsupported StrategyType %q", s.StrategyType)
	}

	exec := s.ExecutionStrategy
	switch exec.ExecutorType {
	case "":
		return fmt.Errorf("ExecutionStrategy.ExecutorType is required when StrategyType is %q", s.StrategyType)
	case ExecutorTypePoolmgr, ExecutorTypeNewdeploy, ExecutorTypeContainer:
	default:
		return fmt.Errorf("unsupported ExecutionStrategy.ExecutorType %q", exec.ExecutorType)
	}

	if exec.MinScale < 0 || exec.MaxScale < 0 {
		return fmt.Errorf("ExecutionStrategy scale must not be negative")
	}
	if exec.MaxScale > 0 && exec.MinScale > exec.MaxScale {
		return fmt.Errorf("ExecutionStrategy.MinScale (%d) exceeds MaxScale (%d)", exec.MinScale, exec.MaxScale)
	}
	if exec.TargetCPUPercent < 0 || exec.TargetCPUPercent > 100 {
		return fmt.Errorf("ExecutionStrategy.TargetCPUPercent must be within 0..100")
	}
	if exec.SpecializationTimeout < 0 {
		return fmt.Errorf("ExecutionStrategy.SpecializationTimeout must not be negative")
	}
	return nil
}
