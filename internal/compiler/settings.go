package compiler

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/lps/internal/engine"
	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/program"
)

// MaxCycleIntervalMs bounds cycleInterval to one hour.
const MaxCycleIntervalMs = 3_600_000

// Settings is the settings block of a program. Zero values mean "use the
// engine default".
type Settings struct {
	MaxTime             int64 `json:"maxTime,omitempty" validate:"omitempty,gt=0"`
	CycleInterval       int64 `json:"cycleInterval,omitempty" validate:"omitempty,gt=0,lte=3600000"`
	ContinuousExecution *bool `json:"continuousExecution,omitempty"`
}

// Facts renders the settings as the facts the engine reads on Load.
func (s Settings) Facts() []ir.Term {
	var out []ir.Term
	if s.MaxTime > 0 {
		out = append(out, ir.NewFunctor(engine.SettingMaxTime, ir.Int(s.MaxTime)))
	}
	if s.CycleInterval > 0 {
		out = append(out, ir.NewFunctor(engine.SettingCycleInterval, ir.Int(s.CycleInterval)))
	}
	if s.ContinuousExecution != nil {
		mode := "off"
		if *s.ContinuousExecution {
			mode = "on"
		}
		out = append(out, ir.NewFunctor(engine.SettingContinuousExecution, ir.Atom(mode)))
	}
	return out
}

// sourceValidate checks struct tags on Source and Settings. Field names in
// reported errors are the CUE field names.
var sourceValidate *validator.Validate

func init() {
	sourceValidate = validator.New()
	sourceValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	err := sourceValidate.RegisterValidation("predid", func(fl validator.FieldLevel) bool {
		return program.ValidPredicateID(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("compiler: register predid validation: %v", err))
	}
}
