package controllers

func BoolPointer(b bool) *bool {
	return &b
}

func StrPointer(b string) *string {
	return &b
}

func Float64Pointer(u float64) *float64 {
	return &u
}
