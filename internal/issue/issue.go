// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigParseId Id = iota + 1
	EnvFileConflictId
	DataDirNotSetId
	ManifestErrorId
	InitDBFailedId
	EngineStartFailedId
	EngineConnectFailedId
	ProvisioningRejectedId
	NoCommandGivenId
	HandoffFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // upstream documentation about the failing subsystem
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

	configParseIssue = &Issue{
		id: ConfigParseId,
		mdMsg: `
# Could not parse the provisioning variables!

One of the POSTGRES_* declarations is malformed, declares the same name
twice, or references an owner that no variable declares.

## Declaration format:
- Entries are separated by ` + "`|`" + `, fields inside an entry by ` + "`:`" + `
- Prefix a user name with ` + "`!`" + ` to make it a superuser
- An empty password field (trailing ` + "`:`" + `) enables passwordless trust login;
  leaving the field out entirely creates a user that cannot log in

## Examples:
~~~
POSTGRES_USERS='app:secret|!admin:masterpw|readonly:'
POSTGRES_DATABASES='app_db:app|scratch'
POSTGRES_CONFIGS='max_connections:300|log_statement:all'
~~~

## Things you can try:
- Check the error message above for the variable and entry at fault
- Make sure every database owner is also declared as a user
- Remove duplicate declarations; the same name must not appear in two
  variables (or twice in one)`,
	}

	envFileConflictIssue = &Issue{
		id: EnvFileConflictId,
		mdMsg: `
# Conflicting variable and _FILE companion!

A variable is set both directly and through its <VAR>_FILE companion.
Only one of the two may be set; the entrypoint refuses to guess which
value you meant.

## How file indirection works:
Any provisioning variable can be read from a file instead, which is how
Docker and Kubernetes secrets are usually mounted:
~~~
docker run -e POSTGRES_PASSWORD_FILE=/run/secrets/pg_password ...
~~~

## Things you can try:
- Unset the direct variable and keep the _FILE companion (or vice versa)
- Check your compose file for a variable set in both 'environment' and
  'secrets' blocks`,
	}

	dataDirNotSetIssue = &Issue{
		id: DataDirNotSetId,
		mdMsg: `
# PGDATA is not set!

The entrypoint needs PGDATA to know where the cluster's data directory
lives. There is no default: silently provisioning into an unintended
directory would hide volume mounting mistakes.

## Things you can try:
- Set PGDATA in the image or at run time:
~~~
docker run -e PGDATA=/var/lib/postgresql/data \
  -v pgdata:/var/lib/postgresql/data ...
~~~

- Base images derived from the official postgres images set PGDATA
  already; check your Dockerfile does not unset it`,
	}

	manifestErrorIssue = &Issue{
		id: ManifestErrorId,
		mdMsg: `
# Could not load the provisioning manifest!

POSTGRES_PROVISION_FILE points at a manifest that is missing, unreadable
or does not validate against the manifest schema.

## Example manifest:
~~~cue
users: [
	{name: "app", password: "secret"},
	{name: "admin", password: "masterpw", superuser: true},
]
databases: [
	{name: "app_db", owner: "app"},
]
settings: [
	{name: "max_connections", value: "300"},
]
initdb_args: ["--data-checksums"]
~~~

## Things you can try:
- Check the path in POSTGRES_PROVISION_FILE and the mount that should
  place the file there
- Check the error message above for the offending line
- Validate the manifest syntax with the cue command-line tool`,
	}

	initdbFailedIssue = &Issue{
		id: InitDBFailedId,
		mdMsg: `
# Cluster initialization failed!

initdb could not create a new cluster in PGDATA.

## Common causes:
- PGDATA exists and is not empty (a leftover from a previous run with a
  different major version, or a wrongly mounted volume)
- The data directory is not writable by the postgres user
- Invalid POSTGRES_INITDB_ARGS (an unknown flag or locale)

## Things you can try:
- Inspect the initdb output above for the specific complaint
- Check the volume mounted at PGDATA: ownership must allow the postgres
  user to write, and the directory must be empty on first start
- Drop POSTGRES_INITDB_ARGS to rule out a flag problem`,
		docLinks: []HttpLink{"https://www.postgresql.org/docs/current/app-initdb.html"},
	}

	engineStartFailedIssue = &Issue{
		id: EngineStartFailedId,
		mdMsg: `
# The bootstrap instance did not start!

pg_ctl could not bring up (or shut down) the temporary instance used for
provisioning.

## Common causes:
- A stale postmaster.pid from an unclean shutdown
- The socket directory is missing or not writable
- Shared memory limits too low for the configured settings

## Things you can try:
- Inspect the server log output above
- Remove a stale postmaster.pid from the data directory if no server is
  actually running
- Check POSTGRES_RUN_DIR (default /var/run/postgresql) exists and is
  writable by the postgres user`,
		docLinks: []HttpLink{"https://www.postgresql.org/docs/current/app-pg-ctl.html"},
	}

	engineConnectFailedIssue = &Issue{
		id: EngineConnectFailedId,
		mdMsg: `
# Could not connect to the bootstrap instance!

The instance reported ready but the administrative connection could not
be established, even after retries.

## Common causes:
- The socket directory differs from the directory the server actually
  listens on
- An init script changed unix_socket_directories
- The instance crashed right after startup

## Things you can try:
- Check the server log output above for a crash
- Make sure POSTGRES_RUN_DIR matches unix_socket_directories`,
	}

	provisioningRejectedIssue = &Issue{
		id: ProvisioningRejectedId,
		mdMsg: `
# The engine rejected a provisioning statement!

A CREATE/ALTER statement failed. The bootstrap instance has been stopped
and nothing was handed off; fix the declarations and start the container
again.

## Common causes:
- A declared role or database already exists: the data directory was
  provisioned by an earlier run with different variables (first-run
  provisioning only ever happens on an empty PGDATA)
- An unknown configuration parameter in POSTGRES_CONFIGS
- A value out of range for the parameter

## Things you can try:
- Check the SQLSTATE and message above
- If you changed declarations on an existing volume: provisioning is
  first-run only, apply the change manually with psql or recreate the
  volume
- Verify parameter names in POSTGRES_CONFIGS against the server version`,
		docLinks: []HttpLink{"https://www.postgresql.org/docs/current/sql-altersystem.html"},
	}

	noCommandGivenIssue = &Issue{
		id: NoCommandGivenId,
		mdMsg: `
# No command given!

The entrypoint expects the server command (or any other program) as its
arguments. At least 'postgres' must be specified to start the database.

## Things you can try:
- Keep the image's default CMD:
~~~dockerfile
CMD ["postgres"]
~~~

- Or pass server flags; a leading '--' argument implies 'postgres':
~~~
docker run ... --max_connections=500
~~~

- Any other command skips provisioning and runs verbatim:
~~~
docker run ... bash
~~~`,
	}

	handoffFailedIssue = &Issue{
		id: HandoffFailedId,
		mdMsg: `
# Could not start the requested command!

The entrypoint finished its work but could not replace itself with the
requested program.

## Common causes:
- The command is not installed in the image or not in PATH
- A typo in the CMD of your Dockerfile or compose file

## Things you can try:
- Check the command spelling and the image's PATH
- Run the image with an interactive shell to inspect what is installed:
~~~
docker run --rm -it --entrypoint bash <image>
~~~`,
	}

	issues = map[Id]*Issue{
		configParseIssue.Id():          configParseIssue,
		envFileConflictIssue.Id():      envFileConflictIssue,
		dataDirNotSetIssue.Id():        dataDirNotSetIssue,
		manifestErrorIssue.Id():        manifestErrorIssue,
		initdbFailedIssue.Id():         initdbFailedIssue,
		engineStartFailedIssue.Id():    engineStartFailedIssue,
		engineConnectFailedIssue.Id():  engineConnectFailedIssue,
		provisioningRejectedIssue.Id(): provisioningRejectedIssue,
		noCommandGivenIssue.Id():       noCommandGivenIssue,
		handoffFailedIssue.Id():        handoffFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
