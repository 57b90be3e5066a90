package config

import "fmt"

type Trait string

const (
	TraitHumor           Trait = "humor"
	TraitSarcasm         Trait = "sarcasm"
	TraitSincerity       Trait = "sincerity"
	TraitProfessionalism Trait = "professionalism"
)

var Traits = []Trait{TraitHumor, TraitSarcasm, TraitSincerity, TraitProfessionalism}

// Personality holds trait percentages in [0,100].
type Personality struct {
	Humor           int `yaml:"humor" example:"50" validate:"min=0,max=100"`
	Sarcasm         int `yaml:"sarcasm" example:"20" validate:"min=0,max=100"`
	Sincerity       int `yaml:"sincerity" example:"100" validate:"min=0,max=100"`
	Professionalism int `yaml:"professionalism" example:"80" validate:"min=0,max=100"`
}

func (p *Personality) Get(t Trait) int {
	switch t {
	case TraitHumor:
		return p.Humor
	case TraitSarcasm:
		return p.Sarcasm
	case TraitSincerity:
		return p.Sincerity
	case TraitProfessionalism:
		return p.Professionalism
	}

	return 0
}

// Set stores the clamped value and returns it.
func (p *Personality) Set(t Trait, value int) (int, error) {
	value = Clamp(value)

	switch t {
	case TraitHumor:
		p.Humor = value
	case TraitSarcasm:
		p.Sarcasm = value
	case TraitSincerity:
		p.Sincerity = value
	case TraitProfessionalism:
		p.Professionalism = value
	default:
		return 0, fmt.Errorf("unknown trait %q", t)
	}

	return value, nil
}

func (p *Personality) clamp() {
	p.Humor = Clamp(p.Humor)
	p.Sarcasm = Clamp(p.Sarcasm)
	p.Sincerity = Clamp(p.Sincerity)
	p.Professionalism = Clamp(p.Professionalism)
}

func Clamp(value int) int {
	return max(0, min(100, value))
}
