package types

// BaseModel is the plain entity with no attributes beyond the base contract.
type BaseModel struct {
	Base
}

// NewBaseModel creates a fresh BaseModel registered with reg.
func NewBaseModel(reg Registry) *BaseModel {
	e, _ := New(KindBaseModel, reg)
	return e.(*BaseModel)
}

// TypeName returns "BaseModel".
func (*BaseModel) TypeName() string { return KindBaseModel }
