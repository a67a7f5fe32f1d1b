package ir

// Project is the content of project.yaml
type Project struct {
	Name       string       `yaml:"name"`
	Encoding   string       `yaml:"encoding,omitempty"`
	StdStrings bool         `yaml:"stdstrings"`
	Superuser  string       `yaml:"superuser,omitempty"`
	Extensions []*Extension `yaml:"extensions,omitempty"`
	Languages  []*Language  `yaml:"languages,omitempty"`
}

// SuperuserOrDefault returns the role that owns everything not
// explicitly owned
func (p *Project) SuperuserOrDefault() string {
	if p.Superuser != "" {
		return p.Superuser
	}
	return DefaultOwner
}

type Extension struct {
	Meta    `yaml:",inline"`
	Version string `yaml:"version,omitempty"`
	Cascade bool   `yaml:"cascade,omitempty"`
}

type Language struct {
	Meta          `yaml:",inline"`
	Replace       bool   `yaml:"replace,omitempty"`
	Trusted       bool   `yaml:"trusted,omitempty"`
	Handler       string `yaml:"handler,omitempty"`
	InlineHandler string `yaml:"inline_handler,omitempty"`
	Validator     string `yaml:"validator,omitempty"`
}
