package domain

import (
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeMsgpack writes the value with object keys in insertion order
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v.kind {
	case KindBool:
		return enc.EncodeBool(v.b)
	case KindNumber:
		if i, err := strconv.ParseInt(v.s, 10, 64); err == nil {
			return enc.EncodeInt(i)
		}
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return enc.EncodeString(v.s)
		}
		return enc.EncodeFloat64(f)
	case KindString:
		return enc.EncodeString(v.s)
	case KindObject:
		return v.obj.EncodeMsgpack(enc)
	case KindArray:
		if err := enc.EncodeArrayLen(len(v.arr)); err != nil {
			return err
		}
		for _, item := range v.arr {
			if err := item.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.EncodeNil()
	}
}

// EncodeMsgpack writes the object as a map in insertion order
func (o *Object) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(o.Len()); err != nil {
		return err
	}
	var err error
	o.Range(func(key string, v Value) bool {
		if err = enc.EncodeString(key); err != nil {
			return false
		}
		err = v.EncodeMsgpack(enc)
		return err == nil
	})
	return err
}

// EncodeMsgpack writes the document with the same field names as its JSON form
func (d *Document) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(4); err != nil {
		return err
	}
	if err := enc.EncodeString("id"); err != nil {
		return err
	}
	if err := enc.EncodeString(d.id); err != nil {
		return err
	}
	if err := enc.EncodeString("data"); err != nil {
		return err
	}
	if err := d.data.EncodeMsgpack(enc); err != nil {
		return err
	}
	if err := enc.EncodeString("createdAt"); err != nil {
		return err
	}
	if err := enc.EncodeInt(d.createdAt); err != nil {
		return err
	}
	if err := enc.EncodeString("updatedAt"); err != nil {
		return err
	}
	return enc.EncodeInt(d.updatedAt)
}
