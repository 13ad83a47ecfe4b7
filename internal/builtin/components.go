package builtin

import (
	"fmt"
	"time"

	"github.com/zeusync/engine/internal/core/models"
)

type Transform struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Velocity is in units per second.
type Velocity struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

type Tag struct {
	Name string `yaml:"name"`
}

// Lifetime kills its entity once Remaining reaches zero. Its structured form
// is {ttl: "1.5s"}; a bare number is read as seconds.
type Lifetime struct {
	Remaining time.Duration
}

func (l *Lifetime) Save(out models.Data) error {
	out["ttl"] = l.Remaining.String()
	return nil
}

func (l *Lifetime) Load(in models.Data) error {
	raw, ok := in["ttl"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("lifetime ttl: %w", err)
		}
		l.Remaining = d
	case int:
		l.Remaining = time.Duration(v) * time.Second
	case int64:
		l.Remaining = time.Duration(v) * time.Second
	case float64:
		l.Remaining = time.Duration(v * float64(time.Second))
	default:
		return fmt.Errorf("lifetime ttl: unsupported value %T", raw)
	}
	return nil
}

// Kinds returns the component kinds of this module.
func Kinds() []models.ComponentKind {
	return []models.ComponentKind{
		models.NewMixin[Transform](),
		models.NewMixin[Velocity](),
		models.NewMixin[Lifetime](),
		models.NewMixin[Tag](),
	}
}
