package types

// User attribute names.
const (
	UserEmail     = "email"
	UserPassword  = "password"
	UserFirstName = "first_name"
	UserLastName  = "last_name"
)

// User is an account holder. Its attributes read as the empty string until set.
type User struct {
	Base
}

// NewUser creates a fresh User registered with reg.
func NewUser(reg Registry) *User {
	e, _ := New(KindUser, reg)
	return e.(*User)
}

// TypeName returns "User".
func (*User) TypeName() string { return KindUser }

func (u *User) Email() string     { return u.text(UserEmail) }
func (u *User) Password() string  { return u.text(UserPassword) }
func (u *User) FirstName() string { return u.text(UserFirstName) }
func (u *User) LastName() string  { return u.text(UserLastName) }

func (u *User) SetEmail(v string)     { u.setText(UserEmail, v) }
func (u *User) SetPassword(v string)  { u.setText(UserPassword, v) }
func (u *User) SetFirstName(v string) { u.setText(UserFirstName, v) }
func (u *User) SetLastName(v string)  { u.setText(UserLastName, v) }

// setText stores a User attribute. The names are never reserved.
func (u *User) setText(name, v string) {
	if u.attrs == nil {
		u.attrs = make(map[string]any)
	}
	u.attrs[name] = v
}

// text returns the named attribute when it holds a string, else "".
func (u *User) text(name string) string {
	s, _ := u.attrs[name].(string)
	return s
}
