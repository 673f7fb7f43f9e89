package command

import (
	"fmt"
	"strings"
)

// Kind identifies the structured operation a command line was parsed into.
type Kind uint8

const (
	KindUnsupported Kind = iota
	KindInit
	KindAdd
	KindCommit
	KindBranch
	KindCheckout
	KindCheckoutNew
	KindMerge
)

func (k Kind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindAdd:
		return "add"
	case KindCommit:
		return "commit"
	case KindBranch:
		return "branch"
	case KindCheckout:
		return "checkout"
	case KindCheckoutNew:
		return "checkout -b"
	case KindMerge:
		return "merge"
	default:
		return "unsupported"
	}
}

const (
	DefaultFiles   = "."
	DefaultMessage = "Commit"
)

// Args holds the named parameters extracted from the argument tail. Only the
// fields relevant to the operation kind are populated.
type Args struct {
	Message      string `json:"message,omitempty"`
	BranchName   string `json:"branchName,omitempty"`
	Files        string `json:"files,omitempty"`
	TargetBranch string `json:"targetBranch,omitempty"`
	// Subcommand is the literal (lowercased) subcommand of an unsupported command.
	Subcommand string `json:"subcommand,omitempty"`
}

type Operation struct {
	Kind Kind `json:"kind"`
	Args Args `json:"args"`
}

func (op Operation) String() string {
	switch op.Kind {
	case KindAdd:
		return fmt.Sprintf("add %s", op.Args.Files)
	case KindCommit:
		return fmt.Sprintf("commit -m %q", op.Args.Message)
	case KindBranch, KindCheckout, KindCheckoutNew:
		return fmt.Sprintf("%s %s", op.Kind, op.Args.BranchName)
	case KindMerge:
		return fmt.Sprintf("merge %s", op.Args.TargetBranch)
	case KindUnsupported:
		return fmt.Sprintf("unsupported %s", op.Args.Subcommand)
	default:
		return op.Kind.String()
	}
}

// Supported reports whether the operation can be handed to a backend.
func (op Operation) Supported() bool {
	return op.Kind != KindUnsupported
}

// Blank reports whether raw holds nothing but whitespace. Callers filter these
// out before parsing.
func Blank(raw string) bool {
	return strings.TrimSpace(raw) == ""
}
