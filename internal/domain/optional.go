package domain

// Optional is a field of a partial update. Set distinguishes "omitted" from "explicitly cleared":
// Set=false leaves the stored value alone, Set=true with Value=nil clears it.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some marks the field as provided with a value
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null marks the field as provided and cleared
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// AppointmentUpdate partial update of the free-text fields of an appointment
type AppointmentUpdate struct {
	Notes         Optional[string]
	AdminNotes    Optional[string]
	CustomerName  Optional[string]
	CustomerPhone Optional[string]
	CustomerEmail Optional[string]
}

// IsEmpty reports whether no field was provided
func (u AppointmentUpdate) IsEmpty() bool {
	return !u.Notes.Set && !u.AdminNotes.Set && !u.CustomerName.Set && !u.CustomerPhone.Set && !u.CustomerEmail.Set
}
