package bytecode

import "github.com/fxamacker/cbor/v2"

// dumpConst and dumpContract mirror Const/CompiledContract with exported,
// CBOR-friendly field names; they exist only for the inspection dump below
// and are never read back by the VM or compiler.
type dumpConst struct {
	Tag   string      `cbor:"tag"`
	Value interface{} `cbor:"value,omitempty"`
}

type dumpInstr struct {
	Op        string `cbor:"op"`
	Index     uint16 `cbor:"index,omitempty"`
	PosCount  uint16 `cbor:"pos_count,omitempty"`
	KwCount   uint16 `cbor:"kw_count,omitempty"`
	JumpDelta int32  `cbor:"jump_delta,omitempty"`
	FieldPath string `cbor:"field_path,omitempty"`
}

type dumpContract struct {
	Name       string      `cbor:"name"`
	ParamNames []string    `cbor:"param_names"`
	ParamTypes []string    `cbor:"param_types"`
	ReturnType string      `cbor:"return_type,omitempty"`
	LocalNames []string    `cbor:"local_names"`
	Code       []dumpInstr `cbor:"code"`
}

type dumpModule struct {
	Constants []dumpConst    `cbor:"constants"`
	Contracts []dumpContract `cbor:"contracts"`
}

func constValue(c Const) interface{} {
	switch c.Tag {
	case ConstInt:
		return c.Int
	case ConstFloat:
		return c.Float
	case ConstString:
		return c.String
	case ConstBool:
		return c.Bool
	default:
		return nil
	}
}

// Dump renders m as a human-inspectable CBOR document, for `covenant
// inspect` style debugging. This is never the wire format read by Read/
// Write or the VM — only the .covc binary encoding in writer.go/reader.go
// is authoritative.
func (m *Module) Dump() ([]byte, error) {
	dm := dumpModule{}
	tagNames := map[ConstTag]string{ConstNull: "null", ConstInt: "int", ConstFloat: "float", ConstString: "string", ConstBool: "bool"}
	for _, c := range m.Constants {
		dm.Constants = append(dm.Constants, dumpConst{Tag: tagNames[c.Tag], Value: constValue(c)})
	}
	for _, c := range m.Contracts {
		dc := dumpContract{
			Name:       c.Name,
			ParamNames: c.ParamNames,
			ParamTypes: c.ParamTypes,
			LocalNames: c.LocalNames,
		}
		if c.HasReturn {
			dc.ReturnType = c.ReturnType
		}
		for _, in := range c.Code {
			dc.Code = append(dc.Code, dumpInstr{
				Op: in.Op.String(), Index: in.Index, PosCount: in.PosCount,
				KwCount: in.KwCount, JumpDelta: in.JumpDelta, FieldPath: in.FieldPath,
			})
		}
		dm.Contracts = append(dm.Contracts, dc)
	}

	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		return nil, err
	}
	return mode.Marshal(dm)
}
