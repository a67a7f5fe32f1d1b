package config

// Version is set at link time for release builds
var Version = "1.0.0"

// Args is the command line. Each mode of operation is a subcommand.
type Args struct {
	Verbose []bool `arg:"-v" help:"see more detail (verbose). -vvv is not advised for normal use."`
	Quiet   []bool `arg:"-q" help:"see less detail (quiet)."`
	Debug   bool   `arg:"--debug" help:"display extended information about errors. Implies maximum verbosity."`
	// Handled by go-arg
	// Help bool `arg:"-h,--help" help:"show this usage information"`

	Build    *BuildCmd    `arg:"subcommand:build" help:"build a database dump from a project"`
	Generate *GenerateCmd `arg:"subcommand:generate" help:"generate a project from a database dump"`
}

func (Args) Version() string {
	return "pglifecycle " + Version
}

func (Args) Description() string {
	return "pglifecycle manages a PostgreSQL schema as a tree of YAML files"
}

type BuildCmd struct {
	Project     string `arg:"positional,required" help:"path to the project directory"`
	Destination string `arg:"positional" help:"file to write the dump to. Defaults to the plain SQL script <project>/<name>.sql, restorable with psql. Other extensions get the pglifecycle container, which pg_restore cannot read"`
}

type GenerateCmd struct {
	Destination string `arg:"positional,required" help:"directory to write the project to"`

	DumpFile  string `arg:"-d,--dump-file" help:"pg_dump archive or plain SQL file to read. Written to when --extract is set"`
	RolesFile string `arg:"-r,--roles-file" help:"pg_dumpall -r output to read roles from. Written to when --extract-roles is set"`

	Extract          bool `arg:"-e,--extract" help:"run pg_dump to create the dump file"`
	ExtractRoles     bool `arg:"--extract-roles" help:"run pg_dumpall -r to create the roles file"`
	RolesFromCatalog bool `arg:"--roles-from-catalog" help:"read roles from pg_roles instead of pg_dumpall"`

	Force           bool   `arg:"-f,--force" help:"write into the destination even if it exists"`
	Gitkeep         bool   `arg:"--gitkeep" help:"create a .gitkeep file in empty directories"`
	RemoveEmptyDirs bool   `arg:"--remove-empty-dirs" help:"remove directories left without any files"`
	SaveRemaining   bool   `arg:"--save-remaining" help:"save unprocessed dump entries to remaining.yaml"`
	Ignore          string `arg:"--ignore" help:"file listing project paths to skip, one per line"`

	NoOwner          bool `arg:"-O,--no-owner" help:"skip object ownership"`
	NoPrivileges     bool `arg:"-x,--no-privileges" help:"skip grants and revocations"`
	NoSecurityLabels bool `arg:"--no-security-labels" help:"skip security labels"`
	NoTablespaces    bool `arg:"--no-tablespaces" help:"skip tablespace assignments"`

	Host     string  `arg:"--host,env:PGHOST" help:"database server host or socket directory"`
	Port     uint    `arg:"-p,--port,env:PGPORT" help:"database server port, 5432 when unset"`
	DBName   string  `arg:"--dbname,env:PGDATABASE" help:"database to connect to"`
	Username string  `arg:"-U,--username,env:PGUSER" help:"database user name"`
	Password *string `arg:"--password,env:PGPASSWORD" help:"database password"`
	Prompt   bool    `arg:"-W,--prompt-password" help:"prompt for the database password"`
	Role     string  `arg:"--role" help:"role to SET ROLE to before dumping"`
}
