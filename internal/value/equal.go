package value

import "math/big"

// Equal reports whether a and b are structurally equal.
//
// Numbers compare by numeric value, so 5 equals 5.0. Objects compare by
// member set; member order is ignored. Arrays compare item by item.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return numbersEqual(a.s, b.s)
	case KindString:
		return a.s == b.s
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if a.obj.Len() != b.obj.Len() {
			return false
		}
		for p := a.obj.Oldest(); p != nil; p = p.Next() {
			other, ok := b.obj.Get(p.Key)
			if !ok || !Equal(p.Value, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func numbersEqual(x, y string) bool {
	if x == y {
		return true
	}
	var rx, ry big.Rat
	if _, ok := rx.SetString(x); !ok {
		return false
	}
	if _, ok := ry.SetString(y); !ok {
		return false
	}
	return rx.Cmp(&ry) == 0
}
