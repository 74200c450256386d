package googletoken

import "encoding/json"

// ProviderName tags every Profile produced by this package.
const ProviderName = "google"

// Name carries the structured name claims. Fields default to "" when the
// upstream claim is missing.
type Name struct {
	FamilyName string `json:"familyName"`
	GivenName  string `json:"givenName"`
	MiddleName string `json:"middleName"`
}

// Email is an email address value object.
type Email struct {
	Value string `json:"value"`
}

// Photo is a photo URL value object.
type Photo struct {
	Value string `json:"value"`
}

// Profile is the fixed-shape record produced for every authenticated user,
// regardless of which upstream claims were actually present. Every string
// field is populated (possibly with ""); Emails and Photos always contain
// exactly one entry. Profiles are constructed fresh per fetch and must not
// be mutated afterward.
type Profile struct {
	Provider    string  `json:"provider"`
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Name        Name    `json:"name"`
	Gender      string  `json:"gender"`
	Emails      []Email `json:"emails"`
	Photos      []Photo `json:"photos"`

	// Raw is the untouched response document the profile was built from.
	Raw json.RawMessage `json:"_raw"`
	// RawClaims is the parsed form of Raw, retained for caller inspection.
	RawClaims map[string]any `json:"_json"`
}

// Claims unmarshals the raw profile document into the provided struct
// reference, for callers that want typed access to provider claims beyond
// the normalized fields.
func (p *Profile) Claims(ref any) error {
	return json.Unmarshal(p.Raw, ref)
}

// NormalizeProfile maps a userinfo-style JSON document onto the fixed
// Profile shape. Recognized claims are sub, name, family_name, given_name,
// middle_name, gender, email, and picture; each missing claim yields an
// empty string in the corresponding field. A document that is not valid
// JSON is rejected with the parse error as-is.
func NormalizeProfile(body []byte) (*Profile, error) {
	var claims map[string]any
	if err := json.Unmarshal(body, &claims); err != nil {
		return nil, err
	}
	str := func(key string) string {
		s, _ := claims[key].(string)
		return s
	}
	return &Profile{
		Provider:    ProviderName,
		ID:          str("sub"),
		DisplayName: str("name"),
		Name: Name{
			FamilyName: str("family_name"),
			GivenName:  str("given_name"),
			MiddleName: str("middle_name"),
		},
		Gender:    str("gender"),
		Emails:    []Email{{Value: str("email")}},
		Photos:    []Photo{{Value: str("picture")}},
		Raw:       append(json.RawMessage(nil), body...),
		RawClaims: claims,
	}, nil
}
