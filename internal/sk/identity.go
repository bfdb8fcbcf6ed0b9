package sk

import "context"

// Identity is the stable account identifier (an email address) obtained
// from the identity provider. It keys both the storage authorization and
// the profile document.
type Identity string

func (id Identity) String() string { return string(id) }

// Host is the presentation surface that can show system-provided screens
// such as the credential picker or the storage consent page.
type Host interface {
	// OpenURL presents a system screen reachable at url.
	OpenURL(ctx context.Context, url string) error
}

// CredentialKind tags the shape of a Credential.
type CredentialKind int

const (
	// CredentialEnvelope is a generic wrapper: a type tag plus opaque bytes.
	CredentialEnvelope CredentialKind = iota + 1

	// CredentialDirect is a typed credential with its fields already parsed.
	CredentialDirect
)

func (k CredentialKind) String() string {
	switch k {
	case CredentialEnvelope:
		return "envelope"
	case CredentialDirect:
		return "direct"
	default:
		return "unknown"
	}
}

// Credential is what the identity layer hands back after the user picks an
// account. Only the fields relevant to Kind are populated.
type Credential struct {
	Kind CredentialKind

	// Envelope fields.
	Type string
	Data []byte

	// Direct fields. ID may be an email or an opaque account number.
	ID          string
	IDToken     string
	DisplayName string
}

// CredentialSource runs the UI-driven credential flow.
type CredentialSource interface {
	GetCredential(ctx context.Context, host Host) (Credential, error)
}

// IdentityProvider exchanges a credential flow for an Identity.
type IdentityProvider interface {
	// SignIn may block while a system credential picker is shown.
	// Fails with ErrUserCancelled or a *ProviderError.
	SignIn(ctx context.Context, host Host) (Identity, error)
}
