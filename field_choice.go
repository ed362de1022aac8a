package binskema

import "fmt"

// choiceOp dispatches on a tag resolved from the enclosing object.
type choiceOp struct {
	tag     Tag
	tagSlot int
	arms    map[any]*node
	def     *node // nil when unknown tags are an error
	flatten bool
}

func (o *choiceOp) fixedSize() int { return -1 }

// arm resolves the tag against obj and picks the matching arm.
func (o *choiceOp) arm(phase Phase, obj Object) (*node, error) {
	var tag any
	if o.tag.fn != nil {
		t, err := o.tag.fn(obj)
		if err != nil {
			return nil, asError(phase, err)
		}
		tag = t
	} else {
		t, ok := getField(obj, o.tagSlot, o.tag.field)
		if !ok {
			return nil, newError(phase, CodeTagNotFound, map[string]string{"tag": o.tag.field}, nil)
		}
		tag = t
	}
	if n, ok := o.arms[choiceKey(tag)]; ok {
		return n, nil
	}
	if o.def != nil {
		return o.def, nil
	}
	return nil, newError(phase, CodeInvalidChoice, nil, fmt.Errorf("no arm for tag %v", tag))
}

func (o *choiceOp) size(v any, obj Object) (int, error) {
	n, err := o.arm(PhaseEncode, obj)
	if err != nil {
		return 0, err
	}
	return n.size(v)
}

func (o *choiceOp) encode(v any, obj Object, buf []byte) (int, error) {
	n, err := o.arm(PhaseEncode, obj)
	if err != nil {
		return 0, err
	}
	return n.encode(v, buf)
}

func (o *choiceOp) decode(d *decoder, fr *recordFrame) (any, frame, error) {
	n, err := o.arm(PhaseDecode, fr.obj)
	if err != nil {
		return nil, nil, err
	}
	if o.flatten {
		return d.open(n, fr.obj)
	}
	return d.open(n, nil)
}
