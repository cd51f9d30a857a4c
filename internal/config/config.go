package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"concerto/internal/domain"
)

type Config struct {
	Env             string                `mapstructure:"env"`
	Database        DatabaseConfig        `mapstructure:"database"`
	Log             LogConfig             `mapstructure:"log"`
	Requirements    Requirements          `mapstructure:"requirements"`
	Roles           []string              `mapstructure:"roles"`
	DefaultUser     DefaultUserConfig     `mapstructure:"default_user"`
	StarterContent  StarterContentConfig  `mapstructure:"starter_content"`
	PasswordEncoder PasswordEncoderConfig `mapstructure:"password_encoder"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres | mysql
	DSN    string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Requirements are the host prerequisites verified by `setup --check`.
type Requirements struct {
	Executables []ExecutableRequirement `mapstructure:"executables"`
	Paths       []PathRequirement       `mapstructure:"paths"`
}

type ExecutableRequirement struct {
	Name        string   `mapstructure:"name"`
	Command     string   `mapstructure:"command"`
	VersionMin  string   `mapstructure:"version_min"`
	VersionArgs []string `mapstructure:"version_args"`
}

type PathRequirement struct {
	Name     string `mapstructure:"name"`
	Path     string `mapstructure:"path"`
	Writable bool   `mapstructure:"writable"`
	Mode     string `mapstructure:"mode"` // octal, e.g. "0775"; empty means any
	Create   bool   `mapstructure:"create"`
}

type DefaultUserConfig struct {
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	Email    string   `mapstructure:"email"`
	Roles    []string `mapstructure:"roles"`
}

type StarterContentConfig struct {
	Dir   string   `mapstructure:"dir"` // empty uses the bundled fixtures
	Files []string `mapstructure:"files"`
}

type PasswordEncoderConfig struct {
	Algorithm string `mapstructure:"algorithm"` // argon2id | bcrypt
}

// StarterContentFiles is the bundled starter content, in import order.
var StarterContentFiles = []string{
	"DataTable_default_cat_item_table.concerto.json",
	"DataTable_default_cat_response_table.concerto.json",
	"DataTable_default_data_table.concerto.json",
	"DataTable_default_linear_item_table.concerto.json",
	"DataTable_default_linear_response_table.concerto.json",
	"DataTable_default_questionnaire_item_table.concerto.json",
	"DataTable_default_questionnaire_response_table.concerto.json",
	"DataTable_default_session_table.concerto.json",
	"DataTable_default_user_table.concerto.json",
	"Test_CAT.concerto.json",
	"Test_consent.concerto.json",
	"Test_create_graph.concerto.json",
	"Test_create_template_definition.concerto.json",
	"Test_feedback.concerto.json",
	"Test_form.concerto.json",
	"Test_info.concerto.json",
	"Test_linear_test.concerto.json",
	"Test_merge_lists.concerto.json",
	"Test_questionnaire.concerto.json",
	"Test_save_data.concerto.json",
	"Test_start_session.concerto.json",
	"ViewTemplate_default_layout.concerto.json",
}

// Load reads config from the optional YAML file at path, then overlays
// environment variables with the CONCERTO_ prefix (e.g. CONCERTO_DATABASE_DSN).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CONCERTO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	applyListDefaults(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "prod")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "concerto.db") // sqlite file in working dir
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("default_user.username", "admin")
	v.SetDefault("default_user.password", "admin")
	v.SetDefault("default_user.email", "admin@mydomain.com")
	v.SetDefault("starter_content.dir", "")
	v.SetDefault("password_encoder.algorithm", "argon2id")
}

// applyListDefaults fills list settings; viper can't express slice-of-struct
// defaults that are still overridable by a config file.
func applyListDefaults(cfg *Config) {
	if len(cfg.Roles) == 0 {
		cfg.Roles = append([]string(nil), domain.RoleNames...)
	}
	if len(cfg.DefaultUser.Roles) == 0 {
		cfg.DefaultUser.Roles = []string{domain.RoleSuperAdmin}
	}
	if len(cfg.StarterContent.Files) == 0 {
		cfg.StarterContent.Files = append([]string(nil), StarterContentFiles...)
	}
	if len(cfg.Requirements.Executables) == 0 {
		cfg.Requirements.Executables = []ExecutableRequirement{
			{Name: "r", Command: "R", VersionMin: "3.4.0", VersionArgs: []string{"--version"}},
			{Name: "rscript", Command: "Rscript", VersionArgs: []string{"--version"}},
		}
	}
	if len(cfg.Requirements.Paths) == 0 {
		cfg.Requirements.Paths = []PathRequirement{
			{Name: "files", Path: "var/files", Writable: true, Create: true},
			{Name: "sessions", Path: "var/sessions", Writable: true, Create: true},
			{Name: "logs", Path: "var/logs", Writable: true, Create: true},
		}
	}
}
