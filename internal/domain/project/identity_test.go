package project_test

import (
	"testing"

	"github.com/rpggio/loom/internal/domain/project"
	"github.com/stretchr/testify/require"
)

func TestRepoIDFromRemote(t *testing.T) {
	cases := []struct {
		remote string
		want   string
	}{
		{"git@github.com:acme/widgets.git", "acme/widgets"},
		{"git@github.com:acme/widgets", "acme/widgets"},
		{"https://github.com/acme/widgets.git", "acme/widgets"},
		{"https://github.com/acme/widgets", "acme/widgets"},
		{"http://github.com/acme/widgets/", "acme/widgets"},
		{"ssh://git@github.com/acme/widgets.git", "acme/widgets"},
		{"https://gitlab.com/acme/widgets.git", ""},
		{"not a url", ""},
		{"", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, project.RepoIDFromRemote(tc.remote), "remote %q", tc.remote)
	}
}

func TestNormalizePath(t *testing.T) {
	require.Equal(t, "/srv/work", project.NormalizePath("/srv/work/"))
	require.Equal(t, "/srv/work", project.NormalizePath("/srv/./work"))
	require.Equal(t, "/srv/work", project.NormalizePath("/srv/other/../work"))
	require.Equal(t, "", project.NormalizePath(""))
}

func TestSlugFromName(t *testing.T) {
	require.Equal(t, "my-cool-project", project.SlugFromName("My Cool Project"))
	require.Equal(t, "widgets-2", project.SlugFromName("  Widgets 2!  "))
	require.Equal(t, "", project.SlugFromName("***"))
}

func TestProjectIdentity(t *testing.T) {
	withRepo := &project.Project{RepoID: "acme/widgets", RootPath: "/srv/widgets"}
	require.Equal(t, "acme/widgets", withRepo.Identity())

	local := &project.Project{RootPath: "/srv/widgets"}
	require.Equal(t, "/srv/widgets", local.Identity())
}
