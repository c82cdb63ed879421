package maplayer

import (
	"github.com/khankhulgun/khanstyle/models"
	"github.com/khankhulgun/khanstyle/style"
)

// Resolve turns a declared position into an insertion instruction. A non
// empty awaited id means the referenced layer has to be in the style before
// the instruction can be carried out.
func Resolve(p models.Position) (at style.Instruction, awaited string) {
	switch p.Kind {
	case models.PositionAbove:
		return style.Instruction{Placement: style.PlaceAbove, Ref: p.Ref}, p.Ref
	case models.PositionBelow:
		return style.Instruction{Placement: style.PlaceBelow, Ref: p.Ref}, p.Ref
	case models.PositionAt:
		return style.Instruction{Placement: style.PlaceAt, Index: p.Index}, ""
	default:
		return style.Instruction{Placement: style.PlaceTop}, ""
	}
}
