package command

import "testing"

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want Operation
	}{
		{name: "init", in: "init", want: Operation{Kind: KindInit}},
		{name: "git_prefix", in: "git init", want: Operation{Kind: KindInit}},
		{name: "prefix_case_insensitive", in: "GIT init", want: Operation{Kind: KindInit}},
		{name: "subcommand_case_insensitive", in: "git Commit -m x", want: Operation{Kind: KindCommit, Args: Args{Message: "x"}}},
		{name: "bare_prefix_is_subcommand", in: "git", want: Operation{Kind: KindUnsupported, Args: Args{Subcommand: "git"}}},
		{name: "add_default", in: "git add", want: Operation{Kind: KindAdd, Args: Args{Files: "."}}},
		{name: "add_files", in: "git add  a.txt   b.txt ", want: Operation{Kind: KindAdd, Args: Args{Files: "a.txt b.txt"}}},
		{name: "commit_double_quoted", in: `git commit -m "fix bug"`, want: Operation{Kind: KindCommit, Args: Args{Message: "fix bug"}}},
		{name: "commit_single_quoted", in: `commit -m 'fix  bug'`, want: Operation{Kind: KindCommit, Args: Args{Message: "fix  bug"}}},
		{name: "commit_bare", in: "commit -m fix", want: Operation{Kind: KindCommit, Args: Args{Message: "fix"}}},
		{name: "commit_glued", in: `commit -m"glued"`, want: Operation{Kind: KindCommit, Args: Args{Message: "glued"}}},
		{name: "commit_default", in: "commit", want: Operation{Kind: KindCommit, Args: Args{Message: "Commit"}}},
		{name: "commit_empty_message", in: `commit -m ""`, want: Operation{Kind: KindCommit, Args: Args{Message: "Commit"}}},
		{name: "commit_long_flag_ignored", in: "commit --message x", want: Operation{Kind: KindCommit, Args: Args{Message: "Commit"}}},
		{name: "branch", in: "git branch  feature ", want: Operation{Kind: KindBranch, Args: Args{BranchName: "feature"}}},
		{name: "branch_empty", in: "git branch", want: Operation{Kind: KindBranch}},
		{name: "checkout", in: "git checkout main", want: Operation{Kind: KindCheckout, Args: Args{BranchName: "main"}}},
		{name: "checkout_new", in: "git checkout -b feature", want: Operation{Kind: KindCheckoutNew, Args: Args{BranchName: "feature"}}},
		{name: "checkout_new_padded", in: "checkout   -b   feature  ", want: Operation{Kind: KindCheckoutNew, Args: Args{BranchName: "feature"}}},
		{name: "checkout_b_without_name", in: "checkout -b", want: Operation{Kind: KindCheckout, Args: Args{BranchName: "-b"}}},
		{name: "merge", in: "git merge feature", want: Operation{Kind: KindMerge, Args: Args{TargetBranch: "feature"}}},
		{name: "unsupported", in: "foobar", want: Operation{Kind: KindUnsupported, Args: Args{Subcommand: "foobar"}}},
		{name: "unsupported_prefixed", in: "git Rebase main", want: Operation{Kind: KindUnsupported, Args: Args{Subcommand: "rebase"}}},
		{name: "checkout_new_tab_before_name", in: "checkout -b\tfeature", want: Operation{Kind: KindCheckoutNew, Args: Args{BranchName: "feature"}}},
		{name: "checkout_new_all_tabs", in: "git\tcheckout\t-b\tfeature", want: Operation{Kind: KindCheckoutNew, Args: Args{BranchName: "feature"}}},
		{name: "checkout_new_newline", in: "checkout -b\nfeature", want: Operation{Kind: KindCheckoutNew, Args: Args{BranchName: "feature"}}},
		{name: "checkout_b_glued_is_branch_name", in: "checkout -bfeature", want: Operation{Kind: KindCheckout, Args: Args{BranchName: "-bfeature"}}},
		{name: "add_tabbed_files", in: "add\ta.txt\tb.txt", want: Operation{Kind: KindAdd, Args: Args{Files: "a.txt b.txt"}}},
		{name: "commit_tab_before_flag", in: "commit\t-m\t'keep  spaces'", want: Operation{Kind: KindCommit, Args: Args{Message: "keep  spaces"}}},
		{name: "tabs", in: "\tgit\tbranch\tdev", want: Operation{Kind: KindBranch, Args: Args{BranchName: "dev"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Parse(tt.in)
			if got != tt.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseNeverPanics(t *testing.T) {
	t.Parallel()

	inputs := []string{"", "   ", "-m", "commit -m", "commit -m '", `commit -m "unterminated`, "checkout -b ", " merge x", "git git git"}
	for _, in := range inputs {
		_ = Parse(in)
	}
	if got := Parse("   "); got.Kind != KindUnsupported {
		t.Fatalf("Parse(blank).Kind = %v, want %v", got.Kind, KindUnsupported)
	}
}

func TestOperationString(t *testing.T) {
	t.Parallel()

	if got := Parse("checkout -b dev").String(); got != "checkout -b dev" {
		t.Fatalf("String() = %q, want %q", got, "checkout -b dev")
	}
	if got := Parse("commit -m hi").String(); got != `commit -m "hi"` {
		t.Fatalf("String() = %q, want %q", got, `commit -m "hi"`)
	}
}
