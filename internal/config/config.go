// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vision-scan/internal/paths"

	"gopkg.in/yaml.v3"
)

// DefaultSparkContentPrefix identifies Spark message attachment URLs
const DefaultSparkContentPrefix = "https://api.ciscospark.com/v1/contents/"

// Config represents the application configuration
type Config struct {
	// Default settings
	Defaults struct {
		Format   string `yaml:"format"`
		Features string `yaml:"features"`
		Checks   string `yaml:"checks"`
		Verbose  bool   `yaml:"verbose"`
		Debug    bool   `yaml:"debug"`
		NoColor  bool   `yaml:"no_color"`
		Workers  int    `yaml:"workers"`
	} `yaml:"defaults"`

	MAC      MACConfig      `yaml:"mac"`
	Vision   VisionConfig   `yaml:"vision"`
	Spark    SparkConfig    `yaml:"spark"`
	Download DownloadConfig `yaml:"download"`
	Report   ReportOptions  `yaml:"report"`

	// Profiles for different scanning scenarios
	Profiles map[string]Profile `yaml:"profiles"`
}

// MACConfig controls MAC address extraction
type MACConfig struct {
	Mode            string `yaml:"mode"`      // all, first or last
	Fragments       string `yaml:"fragments"` // all, full_text or words
	StrictDelimiter bool   `yaml:"strict_delimiter"`
	ZeroPad         bool   `yaml:"zero_pad"`
}

// VisionConfig configures the image annotation client
type VisionConfig struct {
	CredentialsFile    string   `yaml:"credentials_file"`
	APIKey             string   `yaml:"api_key"`
	Endpoint           string   `yaml:"endpoint"`
	OCREngine          string   `yaml:"ocr_engine"` // vision or tesseract
	MaxResults         int      `yaml:"max_results"`
	TimeoutSeconds     int      `yaml:"timeout_seconds"`
	TesseractLanguages []string `yaml:"tesseract_languages"`
	DumpResponses      bool     `yaml:"dump_responses"`
}

// SparkConfig identifies Spark content URLs and the token used to fetch them
type SparkConfig struct {
	ContentPrefix string `yaml:"content_prefix"`
	TokenEnv      string `yaml:"token_env"`
}

// DownloadConfig controls how remote images are fetched
type DownloadConfig struct {
	Always         bool   `yaml:"always"`
	Dir            string `yaml:"dir"`
	KeepFiles      bool   `yaml:"keep_files"`
	ResolveHTML    bool   `yaml:"resolve_html"`
	MaxBytes       int64  `yaml:"max_bytes"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ReportOptions selects the sections the text report prints
type ReportOptions struct {
	Faces                      bool `yaml:"faces"`
	Labels                     bool `yaml:"labels"`
	Landmarks                  bool `yaml:"landmarks"`
	Logos                      bool `yaml:"logos"`
	SafeSearch                 bool `yaml:"safe_search"`
	Texts                      bool `yaml:"texts"`
	Properties                 bool `yaml:"properties"`
	WebPagesWithMatchingImages bool `yaml:"web_pages_with_matching_images"`
	FullMatches                bool `yaml:"full_matches"`
	PartialMatches             bool `yaml:"partial_matches"`
	WebEntities                bool `yaml:"web_entities"`
	CropHints                  bool `yaml:"crop_hints"`
	DocumentBlocks             bool `yaml:"document_blocks"`
	Metadata                   bool `yaml:"metadata"`
	MACAddresses               bool `yaml:"mac_addresses"`
}

// Profile represents a scanning profile with specific settings. Empty
// strings and nil pointers leave the default in place.
type Profile struct {
	Description     string `yaml:"description"`
	Format          string `yaml:"format"`
	Features        string `yaml:"features"`
	Checks          string `yaml:"checks"`
	Verbose         bool   `yaml:"verbose"`
	Debug           bool   `yaml:"debug"`
	NoColor         bool   `yaml:"no_color"`
	MACMode         string `yaml:"mac_mode"`
	Fragments       string `yaml:"fragments"`
	StrictDelimiter *bool  `yaml:"strict_delimiter"`
	ZeroPad         *bool  `yaml:"zero_pad"`
	OCREngine       string `yaml:"ocr_engine"`
	Download        *bool  `yaml:"download"`
}

// Settings is the merged view of defaults, config file and profile that the
// scanner consumes
type Settings struct {
	Format   string
	Features string
	Checks   string
	Verbose  bool
	Debug    bool
	NoColor  bool
	Workers  int

	MAC      MACConfig
	Vision   VisionConfig
	Spark    SparkConfig
	Download DownloadConfig
	Report   ReportOptions
}

func defaultConfig() *Config {
	config := &Config{Profiles: builtinProfiles()}

	config.Defaults.Format = "text"
	config.Defaults.Features = "labels,web,text"
	config.Defaults.Checks = "MAC_ADDRESS"
	config.Defaults.Workers = 4

	config.MAC.Mode = "all"
	config.MAC.Fragments = "all"

	config.Vision.OCREngine = "vision"
	config.Vision.MaxResults = 10
	config.Vision.TimeoutSeconds = 60
	config.Vision.TesseractLanguages = []string{"eng"}

	config.Spark.ContentPrefix = DefaultSparkContentPrefix
	config.Spark.TokenEnv = "SPARK_TOKEN"

	config.Download.Dir = paths.GetDownloadDir()
	config.Download.ResolveHTML = true
	config.Download.MaxBytes = 20 << 20
	config.Download.TimeoutSeconds = 30

	config.Report = DefaultReportOptions()
	return config
}

// DefaultReportOptions prints everything except the full and partial web
// match lists
func DefaultReportOptions() ReportOptions {
	return ReportOptions{
		Faces:                      true,
		Labels:                     true,
		Landmarks:                  true,
		Logos:                      true,
		SafeSearch:                 true,
		Texts:                      true,
		Properties:                 true,
		WebPagesWithMatchingImages: true,
		WebEntities:                true,
		CropHints:                  true,
		DocumentBlocks:             true,
		Metadata:                   true,
		MACAddresses:               true,
	}
}

func boolPtr(b bool) *bool { return &b }

func builtinProfiles() map[string]Profile {
	return map[string]Profile{
		"mac": {
			Description: "Report the MAC address printed on a device label (last match wins)",
			Features:    "text",
			MACMode:     "last",
		},
		"macs": {
			Description: "Report every MAC address recognized in an image",
			Features:    "text",
			MACMode:     "all",
		},
		"analyse": {
			Description: "Web entities and recognized text, then MAC addresses",
			Features:    "web,text",
		},
		"image": {
			Description: "Labels and web matches for an image",
			Features:    "labels,web",
			Checks:      "none",
		},
		"offline": {
			Description: "Local OCR with Tesseract, no cloud calls",
			Features:    "text",
			OCREngine:   "tesseract",
			Download:    boolPtr(true),
		},
	}
}

// LoadConfig loads configuration from the specified file path
func LoadConfig(configPath string) (*Config, error) {
	config := defaultConfig()

	// If no config file specified, return default config
	if configPath == "" {
		return config, nil
	}

	data, err := os.ReadFile(filepath.Clean(paths.ExpandHome(configPath)))
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Restore default-true bools if not explicitly set in config file
	restoreBool(data, &config.Download.ResolveHTML, true, "download", "resolve_html")
	restoreReportDefaults(data, &config.Report)

	// User profiles are merged over the built-in ones
	if config.Profiles == nil {
		config.Profiles = make(map[string]Profile)
	}
	for name, profile := range builtinProfiles() {
		if _, ok := config.Profiles[name]; !ok {
			config.Profiles[name] = profile
		}
	}

	applyPathDefaults(config)

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func restoreBool(data []byte, field *bool, def bool, path ...string) {
	if !containsField(data, path...) {
		*field = def
	}
}

func restoreReportDefaults(data []byte, report *ReportOptions) {
	def := DefaultReportOptions()
	fields := map[string][2]*bool{
		"faces":                          {&report.Faces, &def.Faces},
		"labels":                         {&report.Labels, &def.Labels},
		"landmarks":                      {&report.Landmarks, &def.Landmarks},
		"logos":                          {&report.Logos, &def.Logos},
		"safe_search":                    {&report.SafeSearch, &def.SafeSearch},
		"texts":                          {&report.Texts, &def.Texts},
		"properties":                     {&report.Properties, &def.Properties},
		"web_pages_with_matching_images": {&report.WebPagesWithMatchingImages, &def.WebPagesWithMatchingImages},
		"full_matches":                   {&report.FullMatches, &def.FullMatches},
		"partial_matches":                {&report.PartialMatches, &def.PartialMatches},
		"web_entities":                   {&report.WebEntities, &def.WebEntities},
		"crop_hints":                     {&report.CropHints, &def.CropHints},
		"document_blocks":                {&report.DocumentBlocks, &def.DocumentBlocks},
		"metadata":                       {&report.Metadata, &def.Metadata},
		"mac_addresses":                  {&report.MACAddresses, &def.MACAddresses},
	}
	for key, f := range fields {
		restoreBool(data, f[0], *f[1], "report", key)
	}
}

func applyPathDefaults(config *Config) {
	if config.Download.Dir == "" {
		config.Download.Dir = paths.GetDownloadDir()
	}
	config.Download.Dir = paths.ExpandHome(config.Download.Dir)
	if config.Vision.CredentialsFile != "" {
		config.Vision.CredentialsFile = paths.ExpandHome(config.Vision.CredentialsFile)
	}
}

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile() string {
	// Project-specific config in the current directory first
	for _, name := range []string{"vision-scan.yaml", "vision-scan.yml", ".vision-scan.yaml", ".vision-scan.yml"} {
		if fileExists(name) {
			return name
		}
	}

	// $VISION_SCAN_CONFIG_DIR or the OS user config directory
	if standardConfig := paths.GetConfigFile(); fileExists(standardConfig) {
		return standardConfig
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		xdgConfigFile := filepath.Join(xdg, "vision-scan", "config.yaml")
		if fileExists(xdgConfigFile) {
			return xdgConfigFile
		}
	}

	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ListProfiles returns the available profile names in sorted order
func (c *Config) ListProfiles() []string {
	profiles := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return profiles
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// Resolve merges the config file defaults with an optional profile
func (c *Config) Resolve(profile *Profile) Settings {
	s := Settings{
		Format:   c.Defaults.Format,
		Features: c.Defaults.Features,
		Checks:   c.Defaults.Checks,
		Verbose:  c.Defaults.Verbose,
		Debug:    c.Defaults.Debug,
		NoColor:  c.Defaults.NoColor,
		Workers:  c.Defaults.Workers,
		MAC:      c.MAC,
		Vision:   c.Vision,
		Spark:    c.Spark,
		Download: c.Download,
		Report:   c.Report,
	}
	if s.Workers <= 0 {
		s.Workers = 1
	}

	if profile == nil {
		return s
	}

	if profile.Format != "" {
		s.Format = profile.Format
	}
	if profile.Features != "" {
		s.Features = profile.Features
	}
	if profile.Checks != "" {
		s.Checks = profile.Checks
	}
	s.Verbose = s.Verbose || profile.Verbose
	s.Debug = s.Debug || profile.Debug
	s.NoColor = s.NoColor || profile.NoColor
	if profile.MACMode != "" {
		s.MAC.Mode = profile.MACMode
	}
	if profile.Fragments != "" {
		s.MAC.Fragments = profile.Fragments
	}
	if profile.StrictDelimiter != nil {
		s.MAC.StrictDelimiter = *profile.StrictDelimiter
	}
	if profile.ZeroPad != nil {
		s.MAC.ZeroPad = *profile.ZeroPad
	}
	if profile.OCREngine != "" {
		s.Vision.OCREngine = profile.OCREngine
	}
	if profile.Download != nil {
		s.Download.Always = *profile.Download
	}
	return s
}

// MACEnabled reports whether the MAC_ADDRESS check is selected
func (s Settings) MACEnabled() bool {
	for _, check := range strings.Split(s.Checks, ",") {
		switch strings.ToUpper(strings.TrimSpace(check)) {
		case "MAC_ADDRESS", "ALL":
			return true
		}
	}
	return false
}

// containsField checks if a nested field exists in the YAML data
func containsField(data []byte, path ...string) bool {
	var yamlData map[string]interface{}
	err := yaml.Unmarshal(data, &yamlData)
	if err != nil {
		return false
	}

	current := yamlData
	for i, key := range path {
		if i == len(path)-1 {
			_, exists := current[key]
			return exists
		}
		if next, ok := current[key].(map[string]interface{}); ok {
			current = next
		} else {
			return false
		}
	}
	return false
}

// ValidateConfig checks enumerated values and paths
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if err := validateMAC(config.MAC.Mode, config.MAC.Fragments); err != nil {
		return err
	}
	if err := validateOCREngine(config.Vision.OCREngine); err != nil {
		return err
	}
	if config.Vision.MaxResults < 0 {
		return fmt.Errorf("vision.max_results must not be negative")
	}
	if config.Download.MaxBytes < 0 {
		return fmt.Errorf("download.max_bytes must not be negative")
	}

	if err := paths.ValidatePath(config.Download.Dir); err != nil {
		return fmt.Errorf("invalid download directory: %w", err)
	}
	if err := paths.ValidatePath(config.Vision.CredentialsFile); err != nil {
		return fmt.Errorf("invalid credentials file: %w", err)
	}

	for name, profile := range config.Profiles {
		if err := validateMAC(profile.MACMode, profile.Fragments); err != nil {
			return fmt.Errorf("profile '%s': %w", name, err)
		}
		if err := validateOCREngine(profile.OCREngine); err != nil {
			return fmt.Errorf("profile '%s': %w", name, err)
		}
	}

	return nil
}

// ValidateSettings checks the values that command line flags can override
func ValidateSettings(s Settings) error {
	if err := validateMAC(s.MAC.Mode, s.MAC.Fragments); err != nil {
		return err
	}
	return validateOCREngine(s.Vision.OCREngine)
}

func validateMAC(mode, fragments string) error {
	switch mode {
	case "", "all", "first", "last":
	default:
		return fmt.Errorf("invalid mac mode %q (want all, first or last)", mode)
	}
	switch fragments {
	case "", "all", "full_text", "words":
	default:
		return fmt.Errorf("invalid mac fragments %q (want all, full_text or words)", fragments)
	}
	return nil
}

func validateOCREngine(engine string) error {
	switch engine {
	case "", "vision", "tesseract":
		return nil
	default:
		return fmt.Errorf("invalid ocr engine %q (want vision or tesseract)", engine)
	}
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard locations
// when configFile is empty). If loading fails, it warns on stderr and returns defaults.
func LoadConfigOrDefault(configFile string) *Config {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Error loading config file: %v\n", err)
		fmt.Fprintf(os.Stderr, "Using default configuration\n")
		cfg, _ = LoadConfig("")
	}
	return cfg
}
