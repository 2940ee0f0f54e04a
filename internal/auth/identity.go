package auth

// Identity is the resolved principal behind a connection. It is immutable
// for the connection's lifetime; the realtime layer treats it as opaque
// proof that authentication already happened.
type Identity struct {
	Id          string
	DisplayName string
}

func (i Identity) IsZero() bool {
	return i.Id == ""
}
