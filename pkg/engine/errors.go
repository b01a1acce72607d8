package engine

import (
	"errors"
	"fmt"
)

// ErrorKind tags an Error with the failure it represents.
type ErrorKind string

const (
	// Dispatch errors.
	KindNoCommandSpecified    ErrorKind = "no_command_specified"
	KindNoSuchCommand         ErrorKind = "no_such_command"
	KindNoSubcommandSpecified ErrorKind = "no_subcommand_specified"
	KindModuleFailed          ErrorKind = "module_failed"

	// Configuration errors.
	KindFailedToLoadConfig     ErrorKind = "failed_to_load_config"
	KindInvalidConfig          ErrorKind = "invalid_config"
	KindNoSuchProfile          ErrorKind = "no_such_profile"
	KindFailedToLoadProfile    ErrorKind = "failed_to_load_profile"
	KindConfigMissingInProfile ErrorKind = "config_missing_in_profile"
	KindNoLocalBaseDir         ErrorKind = "no_local_base_dir"

	// Discovery errors.
	KindFailedToFindAsps       ErrorKind = "failed_to_find_asps"
	KindFailedParseAspFromPath ErrorKind = "failed_parse_asp_from_path"

	// Output errors.
	KindUnknownOutputType ErrorKind = "unknown_output_type"
	KindUnsupportedOutput ErrorKind = "unsupported_output"
	KindOutputFailed      ErrorKind = "output_failed"

	// Mutation errors.
	KindConfirmationAborted     ErrorKind = "confirmation_aborted"
	KindFailedToReadInstanceIDs ErrorKind = "failed_to_read_instance_ids"
	KindProviderFailed          ErrorKind = "provider_failed"
	KindFailedToLoadPolicies    ErrorKind = "failed_to_load_policies"
	KindPolicyDenied            ErrorKind = "policy_denied"

	// Remote execution errors.
	KindRemoteCommandFailed ErrorKind = "remote_command_failed"
)

// Error is a kind-tagged error carrying optional context and an optional cause.
// Each component boundary adds exactly one Error layer around the cause it received.
type Error struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Subject is the contextual value for the kind, e.g. a command name or path.
	Subject string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface. The message includes the cause chain.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message() + ": " + e.Err.Error()
	}
	return e.Message()
}

// Message returns the message of this layer only, without the cause.
func (e *Error) Message() string {
	switch e.Kind {
	case KindNoCommandSpecified:
		return "no command specified"
	case KindNoSuchCommand:
		return fmt.Sprintf("no such command '%s'", e.Subject)
	case KindNoSubcommandSpecified:
		return fmt.Sprintf("no sub command for module %s specified", e.Subject)
	case KindModuleFailed:
		return fmt.Sprintf("executing module %s failed", e.Subject)
	case KindFailedToLoadConfig:
		return fmt.Sprintf("failed to load configuration from '%s'", e.Subject)
	case KindInvalidConfig:
		return "invalid configuration"
	case KindNoSuchProfile:
		return fmt.Sprintf("no such profile '%s'", e.Subject)
	case KindFailedToLoadProfile:
		return "failed to load profile"
	case KindConfigMissingInProfile:
		return fmt.Sprintf("there is no %s configuration in this profile", e.Subject)
	case KindNoLocalBaseDir:
		return "no local base directory configured for this profile"
	case KindFailedToFindAsps:
		return "failed to find asps"
	case KindFailedParseAspFromPath:
		return fmt.Sprintf("failed to parse ASP from path '%s'", e.Subject)
	case KindUnknownOutputType:
		return fmt.Sprintf("unknown output type '%s'", e.Subject)
	case KindUnsupportedOutput:
		return fmt.Sprintf("output type '%s' is not supported by this module", e.Subject)
	case KindOutputFailed:
		return "failed to output"
	case KindConfirmationAborted:
		return "operation was not confirmed"
	case KindFailedToReadInstanceIDs:
		return "failed to read instance ids"
	case KindProviderFailed:
		return fmt.Sprintf("provider failed to %s instances", e.Subject)
	case KindFailedToLoadPolicies:
		return "failed to load policies"
	case KindPolicyDenied:
		return fmt.Sprintf("denied by policy: %s", e.Subject)
	case KindRemoteCommandFailed:
		return fmt.Sprintf("remote command failed on instance '%s'", e.Subject)
	default:
		if e.Subject != "" {
			return fmt.Sprintf("%s (%s)", e.Kind, e.Subject)
		}
		return string(e.Kind)
	}
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. An empty target Subject
// matches any subject.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Subject == "" || e.Subject == t.Subject
}

// NewError creates a new error of the given kind.
func NewError(kind ErrorKind, subject string) *Error {
	return &Error{Kind: kind, Subject: subject}
}

// Wrap creates a new error of the given kind around cause.
func Wrap(cause error, kind ErrorKind, subject string) *Error {
	return &Error{Kind: kind, Subject: subject, Err: cause}
}

// ModuleFailed wraps cause as a failure of the named module.
func ModuleFailed(module string, cause error) *Error {
	return Wrap(cause, KindModuleFailed, module)
}

// IsKind reports whether any layer of err's chain has the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return errors.Is(err, &Error{Kind: kind})
}

// KindOf returns the kind of the outermost Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Chain returns one message per layer of err's cause chain, outermost first.
// Layers that are not an *Error contribute their full message and end the chain.
func Chain(err error) []string {
	var lines []string
	for err != nil {
		var e *Error
		if !errors.As(err, &e) || e != err {
			lines = append(lines, err.Error())
			break
		}
		lines = append(lines, e.Message())
		err = e.Err
	}
	return lines
}
