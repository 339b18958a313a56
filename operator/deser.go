package operator

import (
	"math"
	"strconv"

	"blockagg/monoid"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	capnp "zombiezen.com/go/capnproto2"
)

// partial is the wire record shared by all built-in accumulators. Each kind
// uses the fields it needs: scalars in f, counts in n, Quantile values in
// values, Unique members and single cells in items.
type partial struct {
	kind   Kind
	status monoid.Status
	f      [3]float64
	n      int64
	values []float64
	items  []interface{}
}

// cellPartial records a single cell accumulator as a one-item list so the
// cell keeps its type.
func cellPartial(v interface{}) partial {
	return partial{items: []interface{}{v}}
}

func (p partial) cell() interface{} {
	if len(p.items) == 0 {
		return nil
	}
	return p.items[0]
}

// Struct layout: kind and status in the first word, then f[0..2] and n.
// Pointers: values, item texts, item tags.
const (
	kindOffset   capnp.DataOffset = 0
	statusOffset capnp.DataOffset = 1
	floatOffset  capnp.DataOffset = 8
	countOffset  capnp.DataOffset = 32

	valuesField uint16 = 0
	itemsField  uint16 = 1
	tagsField   uint16 = 2
)

var partialSize = capnp.ObjectSize{DataSize: 40, PointerCount: 3}

const (
	tagNull uint8 = iota
	tagInt64
	tagFloat64
	tagString
	tagBool
)

func encodeItem(v interface{}) (uint8, string, error) {
	switch x := v.(type) {
	case nil:
		return tagNull, "", nil
	case int64:
		return tagInt64, strconv.FormatInt(x, 10), nil
	case float64:
		return tagFloat64, strconv.FormatFloat(x, 'g', -1, 64), nil
	case string:
		return tagString, x, nil
	case bool:
		return tagBool, strconv.FormatBool(x), nil
	default:
		return 0, "", errors.Wrapf(ErrNotEncodable, "cell of type %T", v)
	}
}

func decodeItem(tag uint8, text string) (interface{}, error) {
	switch tag {
	case tagNull:
		return nil, nil
	case tagInt64:
		return cast.ToInt64E(text)
	case tagFloat64:
		return cast.ToFloat64E(text)
	case tagString:
		return text, nil
	case tagBool:
		return cast.ToBoolE(text)
	default:
		return nil, errors.Errorf("unknown item tag %d", tag)
	}
}

func encodePartial(p partial) ([]byte, error) {
	msg, seg, err := capnp.NewMessage(capnp.SingleSegment(nil))
	if err != nil {
		return nil, err
	}
	root, err := capnp.NewRootStruct(seg, partialSize)
	if err != nil {
		return nil, err
	}

	root.SetUint8(kindOffset, uint8(p.kind))
	root.SetUint8(statusOffset, uint8(p.status))
	for i, f := range p.f {
		root.SetUint64(floatOffset+capnp.DataOffset(8*i), math.Float64bits(f))
	}
	root.SetUint64(countOffset, uint64(p.n))

	if len(p.values) > 0 {
		values, err := capnp.NewFloat64List(seg, int32(len(p.values)))
		if err != nil {
			return nil, err
		}
		for i, v := range p.values {
			values.Set(i, v)
		}
		if err := root.SetPtr(valuesField, values.ToPtr()); err != nil {
			return nil, err
		}
	}

	if len(p.items) > 0 {
		texts, err := capnp.NewTextList(seg, int32(len(p.items)))
		if err != nil {
			return nil, err
		}
		tags, err := capnp.NewUInt8List(seg, int32(len(p.items)))
		if err != nil {
			return nil, err
		}
		for i, item := range p.items {
			tag, text, err := encodeItem(item)
			if err != nil {
				return nil, err
			}
			tags.Set(i, tag)
			if err := texts.Set(i, text); err != nil {
				return nil, err
			}
		}
		if err := root.SetPtr(itemsField, texts.ToPtr()); err != nil {
			return nil, err
		}
		if err := root.SetPtr(tagsField, tags.ToPtr()); err != nil {
			return nil, err
		}
	}

	return msg.Marshal()
}

func decodePartial(buf []byte) (partial, error) {
	msg, err := capnp.Unmarshal(buf)
	if err != nil {
		return partial{}, errors.Wrap(err, "decode accumulator")
	}
	rootPtr, err := msg.RootPtr()
	if err != nil {
		return partial{}, errors.Wrap(err, "decode accumulator")
	}
	root := rootPtr.Struct()

	p := partial{
		kind:   Kind(root.Uint8(kindOffset)),
		status: monoid.Status(root.Uint8(statusOffset)),
		n:      int64(root.Uint64(countOffset)),
	}
	for i := range p.f {
		p.f[i] = math.Float64frombits(root.Uint64(floatOffset + capnp.DataOffset(8*i)))
	}

	valuesPtr, err := root.Ptr(valuesField)
	if err != nil {
		return partial{}, err
	}
	values := capnp.Float64List{List: valuesPtr.List()}
	if values.Len() > 0 {
		p.values = make([]float64, values.Len())
		for i := range p.values {
			p.values[i] = values.At(i)
		}
	}

	textsPtr, err := root.Ptr(itemsField)
	if err != nil {
		return partial{}, err
	}
	tagsPtr, err := root.Ptr(tagsField)
	if err != nil {
		return partial{}, err
	}
	texts := capnp.TextList{List: textsPtr.List()}
	tags := capnp.UInt8List{List: tagsPtr.List()}
	if texts.Len() != tags.Len() {
		return partial{}, errors.Errorf("decode accumulator: %d items but %d tags", texts.Len(), tags.Len())
	}
	if texts.Len() > 0 {
		p.items = make([]interface{}, texts.Len())
		for i := range p.items {
			text, err := texts.At(i)
			if err != nil {
				return partial{}, err
			}
			item, err := decodeItem(tags.At(i), text)
			if err != nil {
				return partial{}, err
			}
			p.items[i] = item
		}
	}
	return p, nil
}
