package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dev2025-gs/orbital-playground/internal/academy"
	"github.com/dev2025-gs/orbital-playground/internal/astro"
	"github.com/dev2025-gs/orbital-playground/internal/passes"
	"github.com/dev2025-gs/orbital-playground/internal/tle"
	"github.com/dev2025-gs/orbital-playground/internal/transform"
)

// options shared by every subcommand.
type options struct {
	jsonOut bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "orbitctl",
		Short: "Orbital mechanics calculators",
		Long: `
Compute circular orbit parameters, Hohmann transfers and rocket-equation
budgets around Earth (R = 6371 km, mu = 398600.4418 km^3/s^2).

Examples:
  # Low Earth orbit at 400 km
  orbitctl circular --altitude 400

  # LEO to geostationary transfer
  orbitctl hohmann --from 400 --to 35786

  # Delta-v of a stage with Isp 300 s burning 1000 kg down to 250 kg
  orbitctl rocket --isp 300 --m0 1000 --mf 250
`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print JSON instead of a table")

	root.AddCommand(
		newCircularCmd(opts),
		newHohmannCmd(opts),
		newRocketCmd(opts),
		newTLECmd(opts),
		newPassesCmd(opts),
		newTopicsCmd(opts),
	)
	return root
}

func newCircularCmd(opts *options) *cobra.Command {
	var altitude, radius float64

	cmd := &cobra.Command{
		Use:   "circular",
		Short: "Velocity and period of a circular orbit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := radius
			if !cmd.Flags().Changed("radius") {
				if !cmd.Flags().Changed("altitude") {
					return fmt.Errorf("one of --altitude or --radius is required")
				}
				if altitude < 0 {
					return fmt.Errorf("--altitude must not be negative")
				}
				r = astro.Earth.RadiusFromAltitude(altitude)
			}

			p, err := astro.CircularOrbit(astro.Earth, r)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, p, [][2]string{
				{"radius (km)", ff(p.Radius)},
				{"altitude (km)", ff(p.Altitude)},
				{"velocity (km/s)", ff(p.Velocity)},
				{"period (min)", ff(p.Period)},
			})
		},
	}
	cmd.Flags().Float64Var(&altitude, "altitude", 0, "altitude above the surface in km")
	cmd.Flags().Float64Var(&radius, "radius", 0, "orbital radius from the centre in km")
	cmd.MarkFlagsMutuallyExclusive("altitude", "radius")
	return cmd
}

func newHohmannCmd(opts *options) *cobra.Command {
	var from, to float64

	cmd := &cobra.Command{
		Use:   "hohmann",
		Short: "Two-burn transfer between circular orbits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if from < 0 || to < 0 {
				return fmt.Errorf("altitudes must not be negative")
			}
			s, err := astro.HohmannTransfer(astro.Earth,
				astro.Earth.RadiusFromAltitude(from),
				astro.Earth.RadiusFromAltitude(to))
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, s, [][2]string{
				{"burn 1 (km/s)", ff(s.DeltaV1)},
				{"burn 2 (km/s)", ff(s.DeltaV2)},
				{"total (km/s)", ff(s.TotalDeltaV)},
				{"transfer time (min)", ff(s.TransferTime)},
				{"transfer a (km)", ff(s.TransferSemiMajorAxis)},
			})
		},
	}
	cmd.Flags().Float64Var(&from, "from", 0, "initial altitude in km")
	cmd.Flags().Float64Var(&to, "to", 0, "target altitude in km")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

type rocketResult struct {
	DeltaV    float64 `json:"delta_v_km_s"`
	MassRatio float64 `json:"mass_ratio"`
}

func newRocketCmd(opts *options) *cobra.Command {
	var isp, m0, mf float64

	cmd := &cobra.Command{
		Use:   "rocket",
		Short: "Tsiolkovsky rocket equation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dv, err := astro.RocketDeltaV(isp, m0, mf)
			if err != nil {
				return err
			}
			res := rocketResult{DeltaV: dv, MassRatio: m0 / mf}
			return render(cmd.OutOrStdout(), opts, res, [][2]string{
				{"delta-v (km/s)", ff(res.DeltaV)},
				{"mass ratio", ff(res.MassRatio)},
			})
		},
	}
	cmd.Flags().Float64Var(&isp, "isp", 0, "specific impulse in seconds")
	cmd.Flags().Float64Var(&m0, "m0", 0, "initial (wet) mass")
	cmd.Flags().Float64Var(&mf, "mf", 0, "final (dry) mass")
	cmd.MarkFlagRequired("isp")
	cmd.MarkFlagRequired("m0")
	cmd.MarkFlagRequired("mf")
	return cmd
}

func newTLECmd(opts *options) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "tle <file|->",
		Short: "Propagate the first element set in a TLE file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := readEntry(cmd, args[0])
			if err != nil {
				return err
			}

			t := time.Now()
			if at != "" {
				if t, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("--at: %w", err)
				}
			}

			track, err := tle.TrackAt(entry, t)
			if err != nil {
				return err
			}
			circ, err := astro.CircularOrbit(astro.Earth, track.State.Radius)
			if err != nil {
				return err
			}
			out := struct {
				Satellite tle.Track               `json:"satellite"`
				Circular  astro.OrbitalParameters `json:"circular"`
			}{track, circ}
			return render(cmd.OutOrStdout(), opts, out, [][2]string{
				{"satellite", fmt.Sprintf("%s (%d)", track.Name, track.NORADID)},
				{"time", track.State.Time.Format(time.RFC3339)},
				{"radius (km)", ff(track.State.Radius)},
				{"speed (km/s)", ff(track.State.Speed)},
				{"latitude (deg)", ff(track.Subpoint.Latitude)},
				{"longitude (deg)", ff(track.Subpoint.Longitude)},
				{"circular velocity (km/s)", ff(circ.Velocity)},
				{"circular period (min)", ff(circ.Period)},
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "propagation time (RFC 3339, default now)")
	return cmd
}

func newPassesCmd(opts *options) *cobra.Command {
	var (
		lat, lon, altKm float64
		hours, minElev  float64
		maxPasses       int
		start           string
	)

	cmd := &cobra.Command{
		Use:   "passes <file|->",
		Short: "Predict passes of a satellite over an observer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := readEntry(cmd, args[0])
			if err != nil {
				return err
			}
			prop, err := tle.NewPropagator(entry)
			if err != nil {
				return err
			}
			obs, err := transform.NewObserver(lat, lon, altKm)
			if err != nil {
				return err
			}

			window := passes.Window{
				Start:        time.Now(),
				Horizon:      time.Duration(hours * float64(time.Hour)),
				MinElevation: minElev,
				MaxPasses:    maxPasses,
			}
			if start != "" {
				if window.Start, err = time.Parse(time.RFC3339, start); err != nil {
					return fmt.Errorf("--start: %w", err)
				}
			}

			found, err := passes.Predict(cmd.Context(), prop, obs, window)
			if err != nil {
				return err
			}

			rows := [][2]string{{"rise (UTC)", "max el / duration"}}
			for _, p := range found {
				rows = append(rows, [2]string{
					p.Start.Format(time.RFC3339),
					fmt.Sprintf("%.1f deg / %.0fs", p.MaxElevation, p.DurationSeconds),
				})
			}
			return render(cmd.OutOrStdout(), opts, found, rows)
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "observer latitude in degrees")
	cmd.Flags().Float64Var(&lon, "lon", 0, "observer longitude in degrees")
	cmd.Flags().Float64Var(&altKm, "alt", 0, "observer altitude in km")
	cmd.Flags().Float64Var(&hours, "hours", 24, "search window in hours")
	cmd.Flags().Float64Var(&minElev, "min-elevation", 10, "minimum elevation in degrees")
	cmd.Flags().IntVar(&maxPasses, "max", 10, "maximum passes to report")
	cmd.Flags().StringVar(&start, "start", "", "window start (RFC 3339, default now)")
	cmd.MarkFlagRequired("lat")
	cmd.MarkFlagRequired("lon")
	return cmd
}

// readEntry parses the first element set from a file, or stdin for "-".
func readEntry(cmd *cobra.Command, name string) (tle.TLEEntry, error) {
	var r io.Reader = cmd.InOrStdin()
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return tle.TLEEntry{}, err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return tle.TLEEntry{}, err
	}
	return tle.ParseOne(string(data), discardLogger)
}

func newTopicsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "topics [id]",
		Short: "List academy topics or print one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if len(args) == 1 {
				topic, err := academy.Get(args[0])
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return writeJSON(w, topic)
				}
				_, err = fmt.Fprintln(w, topic.Content)
				return err
			}

			topics := academy.List()
			rows := make([][2]string, len(topics))
			for i, t := range topics {
				rows[i] = [2]string{t.ID, t.Title}
			}
			return render(w, opts, topics, rows)
		},
	}
}

// render prints v as JSON or rows as an aligned two-column table.
func render(w io.Writer, opts *options, v any, rows [][2]string) error {
	if opts.jsonOut {
		return writeJSON(w, v)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func ff(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
