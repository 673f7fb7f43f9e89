package command

import (
	"regexp"
	"strings"
	"unicode"
)

// PrefixToken is the optional leading word stripped before the subcommand.
const PrefixToken = "git"

const newBranchFlag = "-b"

// messageFlag matches the three accepted -m forms: double quoted, single
// quoted and a bare token. The flag must start a word so --message and
// friends are not mistaken for it.
var messageFlag = regexp.MustCompile(`(?:^|\s)-m\s*(?:"([^"]*)"|'([^']*)'|(\S*))`)

type token struct {
	text       string
	start, end int
}

// Parse turns a non-blank command line into an Operation. Unknown
// subcommands yield a KindUnsupported operation; Parse never fails.
func Parse(raw string) Operation {
	tokens := tokenize(raw)
	if len(tokens) == 0 {
		return Operation{Kind: KindUnsupported}
	}
	sub, rest := tokens[0], tokens[1:]
	if strings.EqualFold(sub.text, PrefixToken) && len(rest) > 0 {
		sub, rest = rest[0], rest[1:]
	}

	name := strings.ToLower(sub.text)
	switch name {
	case "init":
		return Operation{Kind: KindInit}
	case "add":
		files := joinTokens(rest)
		if files == "" {
			files = DefaultFiles
		}
		return Operation{Kind: KindAdd, Args: Args{Files: files}}
	case "commit":
		// Quoted messages keep their inner spacing, so -m is matched
		// against the raw tail rather than the tokens.
		return Operation{Kind: KindCommit, Args: Args{Message: parseMessage(raw[sub.end:])}}
	case "branch":
		return Operation{Kind: KindBranch, Args: Args{BranchName: joinTokens(rest)}}
	case "checkout":
		if len(rest) > 1 && rest[0].text == newBranchFlag {
			return Operation{Kind: KindCheckoutNew, Args: Args{BranchName: joinTokens(rest[1:])}}
		}
		return Operation{Kind: KindCheckout, Args: Args{BranchName: joinTokens(rest)}}
	case "merge":
		return Operation{Kind: KindMerge, Args: Args{TargetBranch: joinTokens(rest)}}
	default:
		return Operation{Kind: KindUnsupported, Args: Args{Subcommand: name}}
	}
}

func joinTokens(tokens []token) string {
	texts := make([]string, len(tokens))
	for i, tok := range tokens {
		texts[i] = tok.text
	}
	return strings.Join(texts, " ")
}

func parseMessage(tail string) string {
	m := messageFlag.FindStringSubmatch(tail)
	if m == nil {
		return DefaultMessage
	}
	for _, group := range m[1:] {
		if group != "" {
			return group
		}
	}
	return DefaultMessage
}

// tokenize splits on runs of any whitespace and keeps byte offsets so the
// commit tail can be taken verbatim from the raw input.
func tokenize(raw string) []token {
	var tokens []token
	start := -1
	for i, r := range raw {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, token{text: raw[start:i], start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{text: raw[start:], start: start, end: len(raw)})
	}
	return tokens
}
