package zarr

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DataType is the set of zarr v3 core data types this package can store.
// Values serialize as the bare type name, e.g. "uint16" or "float64".
type DataType string

const (
	Bool    DataType = "bool"
	Int8    DataType = "int8"
	Int16   DataType = "int16"
	Int32   DataType = "int32"
	Int64   DataType = "int64"
	Uint8   DataType = "uint8"
	Uint16  DataType = "uint16"
	Uint32  DataType = "uint32"
	Uint64  DataType = "uint64"
	Float32 DataType = "float32"
	Float64 DataType = "float64"
)

type dataTypeInfo struct {
	basic BasicType
	size  int
}

var dataTypes = map[DataType]dataTypeInfo{
	Bool:    {BTBoolean, 1},
	Int8:    {BTInteger, 1},
	Int16:   {BTInteger, 2},
	Int32:   {BTInteger, 4},
	Int64:   {BTInteger, 8},
	Uint8:   {BTUnsigned, 1},
	Uint16:  {BTUnsigned, 2},
	Uint32:  {BTUnsigned, 4},
	Uint64:  {BTUnsigned, 8},
	Float32: {BTFloatingPoint, 4},
	Float64: {BTFloatingPoint, 8},
}

var (
	_ json.Unmarshaler = (*DataType)(nil)
	_ json.Marshaler   = (*DataType)(nil)
)

// ParseDataType accepts either a v3 type name or a NumPy typestr ("<f8",
// "|u1") as written by zarr v2 and most python tooling.
func ParseDataType(s string) (DataType, error) {
	if _, ok := dataTypes[DataType(s)]; ok {
		return DataType(s), nil
	}
	dt, err := ParseDtype(s)
	if err != nil {
		return "", fmt.Errorf("unsupported data type %q: %w", s, err)
	}
	return dt.DataType()
}

// Size is the number of bytes one element occupies
func (dt DataType) Size() int {
	return dataTypes[dt].size
}

func (dt DataType) BasicType() BasicType {
	return dataTypes[dt].basic
}

func (dt DataType) Valid() bool {
	_, ok := dataTypes[dt]
	return ok
}

func (dt DataType) String() string { return string(dt) }

func (dt DataType) MarshalJSON() ([]byte, error) {
	if !dt.Valid() {
		return nil, fmt.Errorf("unsupported data type %q", string(dt))
	}
	return []byte(`"` + string(dt) + `"`), nil
}

func (dt *DataType) UnmarshalJSON(d []byte) error {
	var s string
	if err := json.Unmarshal(d, &s); err != nil {
		return err
	}
	t, err := ParseDataType(s)
	if err != nil {
		return err
	}
	*dt = t
	return nil
}

// Dtype is a NumPy array protocol type string (typestr). The format consists
// of 3 parts:
//  * One character describing the byteorder of the data:
//    "<": little-endian; ">": big-endian; "|": not-relevant)
//  * One character code giving the basic type of the array:
//    * "b": Boolean (integer type where all values are only True or False)
//    * "i": integer;
//    * "u": unsigned integer
//    * "f": floating point
//    * "c": complex floating point
//    * "m": timedelta;
//    * "M": datetime
//    * "S": string (fixed-length sequence of char)
//    * "U": unicode (fixed-length sequence of Py_UNICODE)
//    * "V": other (void * – each item is a fixed-size chunk of memory))
//  * An integer specifying the number of bytes the type uses.
//
// zarr v3 stores byte order in the "bytes" codec instead, so a Dtype only
// survives as an input format; see Dtype.DataType.
type Dtype struct {
	ByteOrder ByteOrder
	BasicType BasicType
	ByteSize  int
	Units     string
}

func ParseDtype(s string) (dt Dtype, err error) {
	// bug in python implementation uses HTML escape sequences when serializaing JSON
	s = strings.Replace(s, "&lt;", "<", 1)
	s = strings.Replace(s, "&gt;", ">", 1)

	if len(s) < 3 {
		return dt, fmt.Errorf("invalid Dtype string. %q is too short", s)
	}

	boByte, s := s[0], s[1:]
	dt.ByteOrder, err = ParseByteOrder(rune(boByte))
	if err != nil {
		return dt, err
	}

	typeByte, s := s[0], s[1:]
	dt.BasicType, err = ParseBasicType(rune(typeByte))
	if err != nil {
		return dt, err
	}

	var sizeStr, unitStr string
	for i, b := range s {
		if b == '[' {
			unitStr = s[i:]
			break
		}
		sizeStr += string(b)
	}

	size, err := strconv.ParseInt(sizeStr, 10, 0)
	if err != nil {
		return dt, err
	}
	dt.ByteSize = int(size)
	dt.Units = unitStr

	return dt, nil
}

func (dt Dtype) String() string {
	s := fmt.Sprintf("%s%s%d", string(dt.ByteOrder), string(dt.BasicType), dt.ByteSize)
	if dt.Units != "" {
		s += dt.Units
	}
	return s
}

// DataType maps a typestr onto the v3 core type of the same width
func (dt Dtype) DataType() (DataType, error) {
	for name, info := range dataTypes {
		if info.basic == dt.BasicType && info.size == dt.ByteSize {
			return name, nil
		}
	}
	return "", fmt.Errorf("no zarr v3 data type for %q", dt.String())
}

type ByteOrder rune

func ParseByteOrder(r rune) (ByteOrder, error) {
	o := ByteOrder(r)
	if _, ok := byteOrders[o]; !ok {
		return o, fmt.Errorf("unsupported byte order format: %q", r)
	}
	return o, nil
}

const (
	BONotRelevant  ByteOrder = '|'
	BOLittleEndian ByteOrder = '<'
	BOBigEndian    ByteOrder = '>'
)

var byteOrders = map[ByteOrder]struct{}{
	BONotRelevant:  {},
	BOLittleEndian: {},
	BOBigEndian:    {},
}

type BasicType rune

func ParseBasicType(r rune) (BasicType, error) {
	t := BasicType(r)
	if _, ok := supportedBasicTypes[t]; !ok {
		return t, fmt.Errorf("unsupported basic type: %q", r)
	}
	return t, nil
}

const (
	BTBoolean       BasicType = 'b'
	BTInteger       BasicType = 'i'
	BTUnsigned      BasicType = 'u'
	BTFloatingPoint BasicType = 'f'
	BTComplex       BasicType = 'c'
	BTTimedelta     BasicType = 'm'
	BTDatetime      BasicType = 'M'
	BTString        BasicType = 'S'
	BTUnicode       BasicType = 'U'
	BTOther         BasicType = 'V'
)

var supportedBasicTypes = map[BasicType]string{
	BTBoolean:       "bool",
	BTInteger:       "int",
	BTUnsigned:      "uint",
	BTFloatingPoint: "float",
	BTComplex:       "complex",
	BTTimedelta:     "timeDelta",
	BTDatetime:      "dateTime",
	BTString:        "string",
	BTUnicode:       "unicode",
	BTOther:         "other",
}
