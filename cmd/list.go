package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"nolp/pkg/serial"
)

// listPorts and listDetailedPorts enumerate the devices; replaced in tests
var (
	listPorts         = serial.ListPorts
	listDetailedPorts = serial.GetDetailedPortsList
)

type listOptions struct {
	details bool
	format  string
}

// newListCmd builds the list command
func newListCmd() *cobra.Command {
	opts := &listOptions{}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available serial ports",
		Long: `List all available serial ports on the system.

This command scans the system for available serial ports and displays
them in a formatted list. On different platforms:
  - Windows: Lists COM ports
  - Linux: Lists /dev/tty* devices
  - macOS: Lists /dev/cu.* and /dev/tty.* devices`,
		Aliases: []string{"ls", "ports"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts)
		},
	}

	listCmd.Flags().BoolVar(&opts.details, "details", false, "show USB vendor, product and serial number")
	listCmd.Flags().StringVarP(&opts.format, "format", "f", "table", "output format (table, csv, json)")
	return listCmd
}

func runList(cmd *cobra.Command, opts *listOptions) error {
	portInfos, err := enumerate(opts.details)
	if err != nil {
		return fmt.Errorf("error listing ports: %w", err)
	}

	out := cmd.OutOrStdout()
	switch opts.format {
	case "csv":
		return printPortsCSV(out, portInfos, opts.details)
	case "json":
		return printPortsJSON(out, portInfos, opts.details)
	case "table":
		printPortsTable(out, portInfos, opts.details)
		return nil
	default:
		return fmt.Errorf("unknown format %q (table, csv, json)", opts.format)
	}
}

// enumerate lists the ports, asking the platform for USB details only when
// they are shown.
func enumerate(details bool) ([]serial.PortInfo, error) {
	if details {
		return listDetailedPorts()
	}
	names, err := listPorts()
	if err != nil {
		return nil, err
	}
	infos := make([]serial.PortInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, serial.PortInfo{Name: name})
	}
	return infos, nil
}

func printPortsTable(out io.Writer, portInfos []serial.PortInfo, details bool) {
	if len(portInfos) == 0 {
		fmt.Fprintln(out, "No serial ports found.")
		return
	}

	fmt.Fprintf(out, "Found %d serial port(s):\n", len(portInfos))
	if !details {
		for _, portInfo := range portInfos {
			fmt.Fprintf(out, "  %s\n", portInfo.Name)
		}
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  PORT\tUSB\tVID:PID\tPRODUCT\tSERIAL")
		for _, p := range portInfos {
			usb, ids := "no", "-"
			if p.IsUSB {
				usb = "yes"
				ids = p.VID + ":" + p.PID
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", p.Name, usb, ids, orDash(p.Product), orDash(p.SerialNumber))
		}
		w.Flush()
	}

	fmt.Fprintln(out, "\nUse 'nolp connect <port>' to connect.")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printPortsCSV(out io.Writer, portInfos []serial.PortInfo, details bool) error {
	w := csv.NewWriter(out)
	if details {
		w.Write([]string{"port", "is_usb", "vid", "pid", "product", "serial_number"})
		for _, p := range portInfos {
			w.Write([]string{p.Name, strconv.FormatBool(p.IsUSB), p.VID, p.PID, p.Product, p.SerialNumber})
		}
	} else {
		w.Write([]string{"port"})
		for _, p := range portInfos {
			w.Write([]string{p.Name})
		}
	}
	w.Flush()
	return w.Error()
}

func printPortsJSON(out io.Writer, portInfos []serial.PortInfo, details bool) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if details {
		return enc.Encode(portInfos)
	}
	names := make([]string, 0, len(portInfos))
	for _, p := range portInfos {
		names = append(names, p.Name)
	}
	return enc.Encode(names)
}
