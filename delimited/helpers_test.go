package delimited

import (
	"github.com/anirudhraja/protocodec/wire"
)

type point struct {
	X, Y  int32
	Label string
}

func (p *point) Size() int {
	n := 0
	if p.X != 0 {
		n += wire.SizeFieldSint32(1, p.X)
	}
	if p.Y != 0 {
		n += wire.SizeFieldSint32(2, p.Y)
	}
	if p.Label != "" {
		n += wire.SizeFieldString(3, p.Label)
	}
	return n
}

func (p *point) Serialize(w *wire.Writer) {
	if p.X != 0 {
		w.WriteTag(1, wire.WireVarint)
		w.WriteSint32(p.X)
	}
	if p.Y != 0 {
		w.WriteTag(2, wire.WireVarint)
		w.WriteSint32(p.Y)
	}
	if p.Label != "" {
		w.WriteTag(3, wire.WireBytes)
		w.WriteString(p.Label)
	}
}

func readPoint(r *wire.Reader) (*point, error) {
	p := &point{}
	err := wire.ReadFields(r, nil, func(r *wire.Reader, tag wire.Tag) (bool, error) {
		var err error
		switch tag.FieldNumber() {
		case 1:
			p.X, err = r.ReadSint32()
		case 2:
			p.Y, err = r.ReadSint32()
		case 3:
			p.Label, err = r.ReadString()
		default:
			return false, nil
		}
		return true, err
	})
	return p, err
}

func points(n int) []*point {
	out := make([]*point, n)
	for i := range out {
		out[i] = &point{X: int32(i), Y: -int32(i), Label: "p"}
	}
	return out
}
