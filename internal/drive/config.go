package drive

import (
	"fmt"

	"github.com/san-kum/armsim/internal/dynamo"
)

const DefaultSubSteps = 4

type Config struct {
	// SubSteps is the number of physics steps between rendered frames.
	SubSteps int

	// BalancePassiveForce applies the passive force as a joint-force command
	// before every sub-step. The compensated terms are selected below.
	BalancePassiveForce bool
	CompensateGravity   bool
	CompensateCoriolis  bool

	// MaxFrames stops the loop after that many frames. Zero runs until the
	// context is done.
	MaxFrames int

	// RealTime paces frames to wall-clock time.
	RealTime bool
}

func DefaultConfig() Config {
	return Config{
		SubSteps:            DefaultSubSteps,
		BalancePassiveForce: true,
		CompensateGravity:   true,
		CompensateCoriolis:  true,
	}
}

func (c Config) Validate() error {
	if c.SubSteps <= 0 {
		return fmt.Errorf("%w: sub-steps must be positive, got %d", dynamo.ErrConfiguration, c.SubSteps)
	}
	if c.MaxFrames < 0 {
		return fmt.Errorf("%w: max frames must be non-negative, got %d", dynamo.ErrConfiguration, c.MaxFrames)
	}
	if c.BalancePassiveForce && !c.CompensateGravity && !c.CompensateCoriolis {
		return fmt.Errorf("%w: passive force balancing needs gravity or Coriolis compensation", dynamo.ErrConfiguration)
	}
	return nil
}
