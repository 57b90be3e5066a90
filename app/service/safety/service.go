package safety

import (
	"eleven/app/config"
	"strings"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

type Level int

const (
	LevelSafe Level = iota
	LevelSensitive
	LevelForbidden
)

func (l Level) String() string {
	switch l {
	case LevelSensitive:
		return "sensitive"
	case LevelForbidden:
		return "forbidden"
	default:
		return "safe"
	}
}

type Verdict struct {
	Safe   bool
	Level  Level
	Reason string
}

// Service classifies shell commands. It holds no state besides the config handle.
type Service struct {
	cfg *config.Store
}

func New(di *do.Injector) (*Service, error) {
	return NewService(do.MustInvoke[*config.Store](di)), nil
}

func NewService(cfg *config.Store) *Service {
	return &Service{cfg: cfg}
}

// Validate blocks forbidden patterns unconditionally and, in safe mode, flags sensitive ones.
func (s *Service) Validate(command string) Verdict {
	cfg := s.cfg.Get()
	return Classify(command, cfg.Safety.Forbidden, cfg.Safety.Sensitive, cfg.Safety.SafeMode)
}

func Classify(command string, forbidden, sensitive []string, safeMode bool) Verdict {
	lower := strings.ToLower(command)

	contains := func(pattern string) bool {
		return pattern != "" && strings.Contains(lower, strings.ToLower(pattern))
	}

	if idx := pie.FindFirstUsing(forbidden, contains); idx >= 0 {
		return Verdict{
			Level:  LevelForbidden,
			Reason: "command contains forbidden keyword: " + forbidden[idx],
		}
	}

	if !safeMode {
		return Verdict{Safe: true, Level: LevelSafe, Reason: "safe mode disabled"}
	}

	if idx := pie.FindFirstUsing(sensitive, contains); idx >= 0 {
		return Verdict{
			Level:  LevelSensitive,
			Reason: "command requires confirmation: " + sensitive[idx],
		}
	}

	return Verdict{Safe: true, Level: LevelSafe, Reason: "command is safe"}
}
