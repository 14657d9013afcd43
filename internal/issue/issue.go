// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	EngineNotFoundId Id = iota + 1
	ManifestNotFoundId
	ScriptsDirNotFoundId
	ContextDirNotFoundId
	DockerfileNotFoundId
	StagedFileConflictId
	BuildFailedId
	ConfigLoadFailedId
	InvalidImageNameId
	HookFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // links into the ctxbuild docs
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	engineNotFoundIssue = &Issue{
		id: EngineNotFoundId,
		mdMsg: `
# No container engine found!

We could not find a usable Docker or Podman installation.

## Things you can try:
- Install Docker and make sure the daemon is running:
~~~
$ docker version
~~~

- Or install Podman (rootless works too):
~~~
$ podman version
~~~

- Pick an engine explicitly:
~~~
$ ctxbuild build --engine podman
~~~`,
	}

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# Dependency manifest not found!

The requirements file that should be staged into the build context is missing.

## Expected layout:
~~~
project/
├── requirements.txt     <- the manifest
├── scripts/             <- the scripts bundle source
└── <context>/           <- the build context (contains the Dockerfile)
~~~

## Things you can try:
- Check the path with:
~~~
$ ctxbuild validate
~~~

- Point at a different manifest:
~~~
$ ctxbuild build --requirements ./deps/requirements.txt
~~~`,
	}

	scriptsDirNotFoundIssue = &Issue{
		id: ScriptsDirNotFoundId,
		mdMsg: `
# Scripts directory not found!

The scripts directory that should be archived into the build context is missing.

## Things you can try:
- Create the directory next to the build context:
~~~
$ mkdir scripts
~~~

- Or point at a different directory:
~~~
$ ctxbuild build --scripts ./src/scripts
~~~`,
	}

	contextDirNotFoundIssue = &Issue{
		id: ContextDirNotFoundId,
		mdMsg: `
# Build context directory not found!

The build context directory must exist before staging; ctxbuild populates it
but never creates or destroys it.

## Things you can try:
- Create the context directory with a Dockerfile inside
- Point at the right directory:
~~~
$ ctxbuild build --context ./myimage
~~~`,
	}

	dockerfileNotFoundIssue = &Issue{
		id: DockerfileNotFoundId,
		mdMsg: `
# No Dockerfile in the build context!

The build context directory exists but contains no Dockerfile, so the engine
has nothing to build.

## Things you can try:
- Add a Dockerfile to the context directory
- Validate the context layout:
~~~
$ ctxbuild validate ./myimage
~~~`,
	}

	stagedFileConflictIssue = &Issue{
		id: StagedFileConflictId,
		mdMsg: `
# Staged files already present!

The build context already contains a staged manifest or scripts archive.
This usually means a previous run was interrupted before cleanup, or another
ctxbuild run is using the same context right now.

## Things you can try:
- Remove the leftovers:
~~~
$ ctxbuild clean ./myimage
~~~

- Make sure no other ctxbuild run shares this context`,
	}

	buildFailedIssue = &Issue{
		id: BuildFailedId,
		mdMsg: `
# Image build failed!

The container engine reported a build failure. The staged files have already
been removed from the context.

## Things you can try:
- Check the Dockerfile for syntax errors
- Make sure base images can be pulled
- Re-run with verbose output:
~~~
$ ctxbuild --verbose build
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Your config file contains syntax errors or invalid values.

## Things you can try:
- Check the error message above for the specific field
- Show the effective configuration:
~~~
$ ctxbuild config show
~~~

- Regenerate a default config file:
~~~
$ ctxbuild config init
~~~`,
	}

	invalidImageNameIssue = &Issue{
		id: InvalidImageNameId,
		mdMsg: `
# Invalid image name!

Image names must be lowercase "name[:tag]" references, e.g. "lesion-analysis"
or "registry.example.com/team/lesion-analysis:latest".

## Things you can try:
- Remove uppercase letters and spaces from the name
- Set the image name explicitly:
~~~
$ ctxbuild build --image myproject:latest
~~~`,
	}

	hookFailedIssue = &Issue{
		id: HookFailedId,
		mdMsg: `
# Build hook failed!

A pre-build or post-build hook script exited with an error. Hooks run in the
embedded shell interpreter with the build context as working directory.

## Things you can try:
- Run the hook script manually to reproduce the failure
- Check the hooks section of your config:
~~~
$ ctxbuild config show
~~~`,
	}

	issues = map[Id]*Issue{
		engineNotFoundIssue.Id():     engineNotFoundIssue,
		manifestNotFoundIssue.Id():   manifestNotFoundIssue,
		scriptsDirNotFoundIssue.Id(): scriptsDirNotFoundIssue,
		contextDirNotFoundIssue.Id(): contextDirNotFoundIssue,
		dockerfileNotFoundIssue.Id(): dockerfileNotFoundIssue,
		stagedFileConflictIssue.Id(): stagedFileConflictIssue,
		buildFailedIssue.Id():        buildFailedIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		invalidImageNameIssue.Id():   invalidImageNameIssue,
		hookFailedIssue.Id():         hookFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
