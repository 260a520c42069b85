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

package m2mutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spatialmodel/m2m"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// printResult writes v to w in the given format, which must be
// "json" or "yaml".
func printResult(w io.Writer, v interface{}, format string) error {
	switch format {
	case "json":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("m2m: formatting output: %v", err)
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		e := yaml.NewEncoder(w)
		e.SetIndent(2)
		if err := e.Encode(v); err != nil {
			return fmt.Errorf("m2m: formatting output: %v", err)
		}
		return e.Close()
	default:
		return fmt.Errorf("m2m: invalid output format '%s'; it must be 'json' or 'yaml'", format)
	}
}

// metadataCommand returns a command that prints the result of f.
func metadataCommand(use, short, long string, f func(context.Context, *m2m.Client) (interface{}, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := Cfg.GetString("format")
			if format != "json" && format != "yaml" {
				return fmt.Errorf("m2m: invalid output format '%s'; it must be 'json' or 'yaml'", format)
			}
			c, err := NewClient(Cfg)
			if err != nil {
				return err
			}
			v, err := f(context.Background(), c)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), v, format)
		},
		DisableAutoGenTag: true,
	}
}

var nodesCmd = metadataCommand("nodes", "List the nodes at a site",
	"nodes lists the nodes available at site.",
	func(ctx context.Context, c *m2m.Client) (interface{}, error) {
		return c.Nodes(ctx, Cfg.GetString("site"))
	})

var sensorsCmd = metadataCommand("sensors", "List the sensors on a node",
	"sensors lists the sensors available on the given site and node.",
	func(ctx context.Context, c *m2m.Client) (interface{}, error) {
		return c.Sensors(ctx, Cfg.GetString("site"), Cfg.GetString("node"))
	})

var methodsCmd = metadataCommand("methods", "List the delivery methods of a sensor",
	"methods lists the data delivery methods available for the given site, node and sensor.",
	func(ctx context.Context, c *m2m.Client) (interface{}, error) {
		return c.Methods(ctx, Cfg.GetString("site"), Cfg.GetString("node"), Cfg.GetString("sensor"))
	})

var streamsCmd = metadataCommand("streams", "List the data streams of a sensor",
	"streams lists the data streams available for the given site, node, sensor and method.",
	func(ctx context.Context, c *m2m.Client) (interface{}, error) {
		return c.Streams(ctx, Cfg.GetString("site"), Cfg.GetString("node"),
			Cfg.GetString("sensor"), Cfg.GetString("method"))
	})

var deploymentsCmd = metadataCommand("deployments", "List the deployments of a sensor",
	"deployments lists the deployment numbers of the given site, node and sensor.",
	func(ctx context.Context, c *m2m.Client) (interface{}, error) {
		return c.Deployments(ctx, Cfg.GetString("site"), Cfg.GetString("node"), Cfg.GetString("sensor"))
	})

var vocabCmd = metadataCommand("vocab", "Print the vocabulary of a sensor",
	"vocab prints the vocabulary (names, descriptions and locations) of the given site, node and sensor.",
	func(ctx context.Context, c *m2m.Client) (interface{}, error) {
		return c.Vocabulary(ctx, Cfg.GetString("site"), Cfg.GetString("node"), Cfg.GetString("sensor"))
	})

var streamInfoCmd = metadataCommand("stream-info", "Describe a data stream",
	"stream-info prints a description of the contents of stream.",
	func(ctx context.Context, c *m2m.Client) (interface{}, error) {
		return c.StreamInformation(ctx, Cfg.GetString("stream"))
	})

var parameterInfoCmd = metadataCommand("parameter-info", "Describe a data parameter",
	"parameter-info prints a description of the data parameter with ID parameter.",
	func(ctx context.Context, c *m2m.Client) (interface{}, error) {
		return c.ParameterInformation(ctx, Cfg.GetString("parameter"))
	})
