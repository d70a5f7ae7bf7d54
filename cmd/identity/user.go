package identity

import "time"

// Name holds the components of a person's name. Only First is mandatory.
type Name struct {
	First  string  `json:"first"`
	Middle *string `json:"middle,omitempty"`
	Last   *string `json:"last,omitempty"`
	Prefix *string `json:"prefix,omitempty"`
	Suffix *string `json:"suffix,omitempty"`
}

// Display joins the present name parts with single spaces.
func (n Name) Display() string {
	out := ""
	for _, p := range []*string{n.Prefix, &n.First, n.Middle, n.Last, n.Suffix} {
		if p == nil || *p == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += *p
	}
	return out
}

// Address is a postal address. Street may carry the whole address as free text.
type Address struct {
	Street     string  `json:"street"`
	Street2    *string `json:"street2,omitempty"`
	City       *string `json:"city,omitempty"`
	State      *string `json:"state,omitempty"`
	Country    *string `json:"country,omitempty"`
	PostalCode *string `json:"postal_code,omitempty"`
}

// Metadata is system-maintained account metadata.
type Metadata struct {
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	Locale     *string    `json:"locale,omitempty"`
	Timezone   *string    `json:"timezone,omitempty"`
	TimeOffset *int       `json:"time_offset,omitempty"`
}

// ContactInfo is an additional account such as a messenger handle.
type ContactInfo struct {
	AccountLabel string `json:"account_label"`
	AccountURI   string `json:"account_uri"`
}

// User is the storage representation of an account.
// Hosts map it to their own user type at the service boundary.
type User struct {
	ID               int64
	Name             Name
	IdentityVerified bool
	Username         *string
	Email            *string
	PhoneNumber      *string
	UserPicURI       *string
	ProfilePicURI    *string
	Address          *Address
	Metadata         *Metadata
	ContactInfo      []ContactInfo
	OtherData        map[string]string
}

// Normalized returns a copy with canonical identifiers; blank identifiers become nil.
func (u User) Normalized() User {
	u.Username = normalizePtr(u.Username, NormalizeUsername)
	u.Email = normalizePtr(u.Email, NormalizeEmail)
	u.PhoneNumber = normalizePtr(u.PhoneNumber, NormalizePhoneNumber)
	return u
}

// Label returns a human-oriented identifier for logs and audit rows.
func (u User) Label() string {
	if d := u.Name.Display(); d != "" {
		return d
	}
	switch {
	case u.Username != nil:
		return *u.Username
	case u.Email != nil:
		return *u.Email
	case u.PhoneNumber != nil:
		return *u.PhoneNumber
	}
	return ""
}
