package wifi

import (
	"fmt"
	"strings"
)

// AuthType is the authentication kind of a network profile.
type AuthType int

const (
	AuthNone AuthType = iota
	AuthWEP
	AuthWPA
	// AuthEAP is recognized but profiles cannot be built for it.
	AuthEAP
)

// String returns the tag used on the wire for the auth type.
func (a AuthType) String() string {
	switch a {
	case AuthNone:
		return "NONE"
	case AuthWEP:
		return "WEP"
	case AuthWPA:
		return "WPA"
	case AuthEAP:
		return "EAP"
	}
	return fmt.Sprintf("AuthType(%d)", int(a))
}

// ParseAuthType parses a wire tag. Tags are case-sensitive.
func ParseAuthType(tag string) (AuthType, error) {
	switch tag {
	case "NONE":
		return AuthNone, nil
	case "WEP":
		return AuthWEP, nil
	case "WPA":
		return AuthWPA, nil
	case "EAP":
		return AuthEAP, nil
	}
	return AuthNone, fmt.Errorf("auth type %q: %w", tag, ErrNotSupported)
}

// KeyMgmt is a set of allowed key management schemes.
type KeyMgmt uint8

const (
	KeyMgmtNone KeyMgmt = 1 << iota
	KeyMgmtWPAPSK
	KeyMgmtWPAEAP
	KeyMgmtIEEE8021X
)

// Has reports whether all bits of k are set.
func (m KeyMgmt) Has(k KeyMgmt) bool { return m&k == k }

// GroupCipher is a set of allowed group ciphers.
type GroupCipher uint8

const (
	GroupWEP40 GroupCipher = 1 << iota
	GroupWEP104
	GroupTKIP
	GroupCCMP
)

func (g GroupCipher) Has(c GroupCipher) bool { return g&c == c }

// PairwiseCipher is a set of allowed pairwise ciphers.
type PairwiseCipher uint8

const (
	PairwiseNone PairwiseCipher = 1 << iota
	PairwiseTKIP
	PairwiseCCMP
)

func (p PairwiseCipher) Has(c PairwiseCipher) bool { return p&c == c }

// Protocol is a set of allowed security protocols.
type Protocol uint8

const (
	ProtoWPA Protocol = 1 << iota
	ProtoRSN
)

func (p Protocol) Has(c Protocol) bool { return p&c == c }

// Profile describes one configured Wi-Fi network.
//
// SSID uses the OS convention of wrapping the name in double quotes, e.g.
// `"home"`. Names passed in by callers are used as given.
type Profile struct {
	ID     NetworkID
	SSID   string
	Auth   AuthType
	Hidden bool

	PreSharedKey  string
	WEPKeys       [4]string
	WEPTxKeyIndex int

	KeyMgmt         KeyMgmt
	GroupCiphers    GroupCipher
	PairwiseCiphers PairwiseCipher
	Protocols       Protocol
}

// NewProfile builds a profile with the cipher and key management settings
// for the given auth type. The returned profile has no id.
func NewProfile(ssid string, auth AuthType, credential string, hidden bool) (Profile, error) {
	p := Profile{
		ID:     NoNetworkID,
		SSID:   ssid,
		Auth:   auth,
		Hidden: hidden,
	}

	switch auth {
	case AuthWPA:
		p.PreSharedKey = credential
		p.GroupCiphers = GroupTKIP | GroupCCMP
		p.PairwiseCiphers = PairwiseTKIP | PairwiseCCMP
		p.KeyMgmt = KeyMgmtWPAPSK
		p.Protocols = ProtoRSN
	case AuthWEP:
		p.WEPKeys[0] = `"` + credential + `"`
		p.WEPTxKeyIndex = 0
		p.GroupCiphers = GroupWEP40 | GroupWEP104
		p.KeyMgmt = KeyMgmtNone
	case AuthEAP:
		// TODO: enterprise profiles need an identity/password format agreed with the JS API.
		return Profile{}, fmt.Errorf("auth type %s: %w", auth, ErrNotSupported)
	case AuthNone:
		p.KeyMgmt = KeyMgmtNone
	default:
		return Profile{}, fmt.Errorf("auth type %s: %w", auth, ErrNotSupported)
	}
	return p, nil
}

// ResolveNetworkID returns the id of the last profile whose SSID matches
// exactly, or NoNetworkID.
func ResolveNetworkID(networks []Profile, ssid string) NetworkID {
	id := NoNetworkID
	for _, n := range networks {
		if n.SSID == ssid {
			id = n.ID
		}
	}
	return id
}

// QuoteSSID wraps a raw network name in the OS quoting convention.
func QuoteSSID(name string) string {
	return `"` + name + `"`
}

// CheckQuotedSSID rejects SSIDs that are not in the quoted form. Backends
// list every profile quoted, so a raw SSID could never be resolved again.
func CheckQuotedSSID(ssid string) error {
	if len(ssid) < 3 || !strings.HasPrefix(ssid, `"`) || !strings.HasSuffix(ssid, `"`) {
		return fmt.Errorf("SSID %s is not quoted: %w", ssid, ErrNotSupported)
	}
	return nil
}

// UnquoteSSID strips the OS quoting convention if present.
func UnquoteSSID(ssid string) string {
	if len(ssid) >= 2 && strings.HasPrefix(ssid, `"`) && strings.HasSuffix(ssid, `"`) {
		return ssid[1 : len(ssid)-1]
	}
	return ssid
}

// UnquoteKey strips quotes from an ASCII WEP key. Hex keys are left as is.
func UnquoteKey(key string) string {
	return UnquoteSSID(key)
}
