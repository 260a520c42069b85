/*
Copyright © 2019 the m2m authors.
This file is part of m2m.

m2m is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

m2m is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with m2m.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package m2mutil contains the command-line interface for m2m.
package m2mutil

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/m2m"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	metadataCmds := []*pflag.FlagSet{nodesCmd.Flags(), sensorsCmd.Flags(), methodsCmd.Flags(),
		streamsCmd.Flags(), deploymentsCmd.Flags(), vocabCmd.Flags(), streamInfoCmd.Flags(),
		parameterInfoCmd.Flags()}

	// Options are the configuration options available to m2m.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "BaseURL",
			usage: `
              BaseURL is the root URL of the OOI M2M API.`,
			defaultVal: m2m.DefaultConfig().BaseURL,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "DataURL",
			usage: `
              DataURL is the THREDDS server location that exported files are
              downloaded from. It replaces the 'catalog.html?dataset=' part of
              the file references in an export catalog.`,
			defaultVal: m2m.DefaultConfig().DataURL,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Username",
			usage: `
              Username is the OOI API user name. If Username and Token are not
              set, credentials are read from CredentialsFile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Token",
			usage: `
              Token is the OOI API token.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "CredentialsFile",
			usage: `
              CredentialsFile is the path to a TOML file holding OOI API credentials
              in [machine."<host>"] tables with username and token keys.
              It can include environment variables.`,
			defaultVal: "${HOME}/.m2m/credentials.toml",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "AllowSharedCredentials",
			usage: `
              AllowSharedCredentials specifies whether the [shared] credentials in
              CredentialsFile can be used when there are none for the M2M host.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "CacheDir",
			usage: `
              CacheDir is a directory where M2M metadata responses are cached.
              If it is empty, responses are only cached in memory. It can include
              environment variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "RequestTimeout",
			usage: `
              RequestTimeout is the maximum duration of each HTTP request.`,
			defaultVal: m2m.DefaultConfig().RequestTimeout,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum level of log messages that are printed.
              Acceptable values are 'debug', 'info', 'warn' and 'error'.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "site",
			usage: `
              site is the site designator, for example 'CE01ISSM'.`,
			shorthand:  "s",
			defaultVal: "",
			flagsets: []*pflag.FlagSet{requestCmd.Flags(), nodesCmd.Flags(), sensorsCmd.Flags(),
				methodsCmd.Flags(), streamsCmd.Flags(), deploymentsCmd.Flags(), vocabCmd.Flags()},
		},
		{
			name: "node",
			usage: `
              node is the node designator, for example 'SBD17'.`,
			shorthand:  "n",
			defaultVal: "",
			flagsets: []*pflag.FlagSet{requestCmd.Flags(), sensorsCmd.Flags(), methodsCmd.Flags(),
				streamsCmd.Flags(), deploymentsCmd.Flags(), vocabCmd.Flags()},
		},
		{
			name: "sensor",
			usage: `
              sensor is the instrument designator, for example '06-CTDBPC000'.`,
			defaultVal: "",
			flagsets: []*pflag.FlagSet{requestCmd.Flags(), methodsCmd.Flags(), streamsCmd.Flags(),
				deploymentsCmd.Flags(), vocabCmd.Flags()},
		},
		{
			name: "method",
			usage: `
              method is the data delivery method, for example 'telemetered' or
              'recovered_host'.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{requestCmd.Flags(), streamsCmd.Flags()},
		},
		{
			name: "stream",
			usage: `
              stream is the name of the data stream, for example
              'ctdbp_cdef_dcl_instrument'.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{requestCmd.Flags(), streamInfoCmd.Flags()},
		},
		{
			name: "parameter",
			usage: `
              parameter is the ID of a data parameter.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{parameterInfoCmd.Flags()},
		},
		{
			name: "format",
			usage: `
              format is the output format of metadata, either 'json' or 'yaml'.`,
			defaultVal: "json",
			flagsets:   metadataCmds,
		},
		{
			name: "deploy",
			usage: `
              deploy is the deployment number. If it is set, the start and end of the
              deployment are used as the default time range of the request and the
              deployment depth is used as the default instrument depth.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{requestCmd.Flags()},
		},
		{
			name: "beginDT",
			usage: `
              beginDT is the start of the requested time range, for example
              '2019-01-01T00:00:00.000Z'. If it is empty, data are requested from
              the beginning of the record.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{requestCmd.Flags()},
		},
		{
			name: "endDT",
			usage: `
              endDT is the end of the requested time range. If it is empty, data are
              requested through the latest available.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{requestCmd.Flags()},
		},
		{
			name: "burst",
			usage: `
              burst specifies whether observations should be burst averaged
              into intervals of BurstInterval.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{requestCmd.Flags()},
		},
		{
			name: "BurstInterval",
			usage: `
              BurstInterval is the width of the burst averaging intervals.`,
			defaultVal: m2m.DefaultBurstInterval,
			flagsets:   []*pflag.FlagSet{requestCmd.Flags()},
		},
		{
			name: "depth",
			usage: `
              depth is the instrument deployment depth in meters. If it is zero,
              the depth of the deployment given by deploy is used.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{requestCmd.Flags()},
		},
		{
			name: "tag",
			usage: `
              tag is a regular expression matched against the names of the files
              in the export catalog to select the data files to be collected.`,
			defaultVal: `.*\.nc$`,
			flagsets:   []*pflag.FlagSet{requestCmd.Flags()},
		},
		{
			name: "outfile",
			usage: `
              outfile is the path where the NetCDF output file should be written.
              It can be a local path or a blob storage location starting with
              'file://', 'gs://' or 's3://', and it can include environment variables.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{requestCmd.Flags()},
		},
		{
			name: "PollAttempts",
			usage: `
              PollAttempts is the maximum number of times the status of an export
              is checked before giving up.`,
			defaultVal: m2m.DefaultConfig().PollAttempts,
			flagsets:   []*pflag.FlagSet{requestCmd.Flags()},
		},
		{
			name: "PollInterval",
			usage: `
              PollInterval is the time to wait between export status checks.`,
			defaultVal: m2m.DefaultConfig().PollInterval,
			flagsets:   []*pflag.FlagSet{requestCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("M2M")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case time.Duration:
				if option.shorthand == "" {
					set.Duration(option.name, option.defaultVal.(time.Duration), option.usage)
				} else {
					set.DurationP(option.name, option.shorthand, option.defaultVal.(time.Duration), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(requestCmd)
	for _, cmd := range []*cobra.Command{nodesCmd, sensorsCmd, methodsCmd, streamsCmd,
		deploymentsCmd, vocabCmd, streamInfoCmd, parameterInfoCmd} {
		Root.AddCommand(cmd)
	}
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets the logging level.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("m2m: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("m2m: invalid LogLevel: %v", err)
	}
	logrus.SetLevel(level)
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "m2m",
	Short: "Retrieve data from the OOI M2M interface.",
	Long: `m2m retrieves oceanographic sensor data from the Ocean Observatories
Initiative (OOI) machine-to-machine (M2M) interface and writes it as a
CF/IOOS station time series in NetCDF format.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'M2M_var' where 'var' is the
name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of m2m.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "m2m v%s\n", m2m.Version)
	},
	DisableAutoGenTag: true,
}

// requestCmd is a command that retrieves, processes and saves the data
// from one instrument stream.
var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Request and save instrument data",
	Long: `request requests an export of the data from the instrument stream given by
site, node, sensor, method and stream, waits for the export to complete,
collects and merges the exported files whose names match tag, converts the
result to a CF/IOOS station time series and saves it in outfile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := NewClient(Cfg)
		if err != nil {
			return err
		}
		return Request(context.Background(), c, RequestOptions{
			Ref: m2m.InstrumentRef{
				Site:   Cfg.GetString("site"),
				Node:   Cfg.GetString("node"),
				Sensor: Cfg.GetString("sensor"),
				Method: Cfg.GetString("method"),
				Stream: Cfg.GetString("stream"),
			},
			TimeRange: m2m.TimeRange{
				Start: Cfg.GetString("beginDT"),
				Stop:  Cfg.GetString("endDT"),
			},
			Deploy:        Cfg.GetInt("deploy"),
			Depth:         Cfg.GetFloat64("depth"),
			Tag:           Cfg.GetString("tag"),
			Burst:         Cfg.GetBool("burst"),
			BurstInterval: Cfg.GetDuration("BurstInterval"),
			OutputFile:    os.ExpandEnv(Cfg.GetString("outfile")),
		})
	},
	DisableAutoGenTag: true,
}

// NewClient creates an M2M client from the configuration in cfg.
func NewClient(cfg *viper.Viper) (*m2m.Client, error) {
	log := logrus.StandardLogger()
	c := m2m.DefaultConfig()
	c.BaseURL = os.ExpandEnv(cfg.GetString("BaseURL"))
	c.DataURL = os.ExpandEnv(cfg.GetString("DataURL"))
	c.CacheDir = cfg.GetString("CacheDir")
	c.RequestTimeout = cfg.GetDuration("RequestTimeout")
	if n := cfg.GetInt("PollAttempts"); n > 0 {
		c.PollAttempts = n
	}
	if d := cfg.GetDuration("PollInterval"); d > 0 {
		c.PollInterval = d
	}
	c.Log = log

	creds, err := m2m.ResolveCredentials(
		m2m.Credentials{Username: cfg.GetString("Username"), Token: cfg.GetString("Token")},
		cfg.GetString("CredentialsFile"), c.BaseURL, cfg.GetBool("AllowSharedCredentials"), log)
	if err == m2m.ErrNoCredentials {
		log.Warn("m2m: no credentials found; authenticated requests will fail")
	} else if err != nil {
		return nil, err
	}
	c.Credentials = creds
	return m2m.NewClient(c)
}
