/*
Copyright (c) The clockprobe authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/clocktools/clockprobe/config"
	"github.com/clocktools/clockprobe/ntp"
	"github.com/clocktools/clockprobe/nts"
	"github.com/clocktools/clockprobe/probe"
	"github.com/clocktools/clockprobe/ptp"
	"github.com/clocktools/clockprobe/render"
)

// RootCmd is the single clockprobe command. Exported so the tool can be
// embedded without touching core functionality.
var RootCmd = &cobra.Command{
	Use:   "clockprobe [TARGET]",
	Short: "Query and compare NTP, NTS and PTP time servers",
	Args:  cobra.MaximumNArgs(1),
	RunE:  run,
	// errors carry their own exit codes, cobra shouldn't print usage for them
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Output formats.
const (
	formatText      = "text"
	formatJSON      = "json"
	formatSimple    = "simple"
	formatJSONShort = "json-short"
)

var (
	verbose     bool
	server      string
	compareWith []string
	ipv6Only    bool
	timeoutSec  float64
	count       uint32
	infinite    bool
	intervalSec float64
	format      string
	jsonFlag    bool
	shortFlag   bool
	pretty      bool
	noColor     bool

	ntsFlag bool
	ntsPort uint16

	ptpFlag        bool
	ptpDomain      uint8
	ptpEventPort   uint16
	ptpGeneralPort uint16
	ptpHWTimestamp bool

	pluginFlag   bool
	warningFlag  float64
	criticalFlag float64

	presetName     string
	savePresetName string
)

func init() {
	f := RootCmd.Flags()
	f.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	f.StringVarP(&server, "server", "s", "", "target server (alternative to the positional argument)")
	f.StringSliceVarP(&compareWith, "compare", "C", nil, "compare two or more servers")
	f.BoolVarP(&ipv6Only, "ipv6", "6", false, "resolve to IPv6 addresses only")
	f.Float64Var(&timeoutSec, "timeout", 5, "probe timeout in seconds")
	f.Uint32VarP(&count, "count", "c", 1, "number of samples per target")
	f.BoolVar(&infinite, "infinite", false, "sample until interrupted")
	f.Float64VarP(&intervalSec, "interval", "i", 1, "seconds between samples")
	f.StringVarP(&format, "format", "f", "", "output format: text|json|simple|json-short")
	f.BoolVarP(&jsonFlag, "json", "j", false, "shorthand for --format json")
	f.BoolVarP(&shortFlag, "short", "S", false, "shorthand for --format simple")
	f.BoolVarP(&pretty, "pretty", "p", false, "indent JSON output")
	f.BoolVar(&noColor, "no-color", false, "disable colored output")
	f.BoolVar(&ntsFlag, "nts", false, "authenticate via Network Time Security")
	f.Uint16Var(&ntsPort, "nts-port", nts.DefaultKEPort, "NTS key-exchange port")
	f.BoolVar(&ptpFlag, "ptp", false, "probe via PTP instead of NTP")
	f.Uint8Var(&ptpDomain, "ptp-domain", 0, "PTP domain number")
	f.Uint16Var(&ptpEventPort, "ptp-event-port", ptp.DefaultEventPort, "PTP event port")
	f.Uint16Var(&ptpGeneralPort, "ptp-general-port", ptp.DefaultGeneralPort, "PTP general port")
	f.BoolVar(&ptpHWTimestamp, "ptp-hw-timestamp", false, "request hardware timestamping")
	f.BoolVar(&pluginFlag, "plugin", false, "monitoring plugin mode (Nagios/Centreon line and exit code)")
	f.Float64Var(&warningFlag, "warning", 0, "warning threshold for the average offset (ms, ns for PTP)")
	f.Float64Var(&criticalFlag, "critical", 0, "critical threshold for the average offset (ms, ns for PTP)")
	f.StringVar(&presetName, "preset", "", "apply a saved preset before parsing flags")
	f.StringVar(&savePresetName, "save-preset", "", "save the current arguments as a named preset and exit")
}

// ConfigureVerbosity configures log verbosity based on parsed flags.
func ConfigureVerbosity() {
	log.SetLevel(log.InfoLevel)
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
}

// exitError carries a process exit code through RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func usageErr(format string, args ...interface{}) error {
	err := probe.Errorf(probe.KindUsage, format, args...)
	return &exitError{code: probe.ExitCode(err), err: err}
}

// Execute runs the command and turns errors into exit codes.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.err != nil {
				fmt.Fprintln(os.Stderr, ee.err)
			}
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(probe.ExitCode(err))
	}
}

func pickFormat(defaults config.Defaults) (string, error) {
	switch {
	case format != "":
	case jsonFlag:
		format = formatJSON
	case shortFlag:
		format = formatSimple
	case defaults.Format != "":
		format = defaults.Format
	default:
		format = formatText
	}
	switch format {
	case formatText, formatJSON, formatSimple, formatJSONShort:
		return format, nil
	}
	return "", usageErr("unknown format %q", format)
}

func applyDefaults(cmd *cobra.Command, defaults config.Defaults) {
	if !cmd.Flags().Changed("timeout") && defaults.TimeoutSec != nil {
		timeoutSec = *defaults.TimeoutSec
	}
	if !cmd.Flags().Changed("ipv6") && defaults.IPv6Only != nil {
		ipv6Only = *defaults.IPv6Only
	}
	if !cmd.Flags().Changed("interval") && defaults.IntervalSec != nil {
		intervalSec = *defaults.IntervalSec
	}
}

func thresholds(cmd *cobra.Command) (warning, critical *float64) {
	if cmd.Flags().Changed("warning") {
		warning = &warningFlag
	}
	if cmd.Flags().Changed("critical") {
		critical = &criticalFlag
	}
	return warning, critical
}

func buildProber() (probe.Prober, uint16) {
	if ptpFlag {
		return &ptp.Prober{
			Domain:      ptpDomain,
			EventPort:   ptpEventPort,
			GeneralPort: ptpGeneralPort,
			HWTimestamp: ptpHWTimestamp,
			Verbose:     verbose,
		}, ptpEventPort
	}
	if ntsFlag {
		return &nts.Prober{KEPort: ntsPort}, ntp.DefaultPort
	}
	return &ntp.Prober{}, ntp.DefaultPort
}

func run(cmd *cobra.Command, args []string) error {
	ConfigureVerbosity()
	if noColor {
		color.NoColor = true
	}

	cfgPath, err := config.DefaultPath()
	if err != nil {
		log.Debugf("config path unavailable: %v", err)
	}
	cfg := &config.Config{}
	if cfgPath != "" {
		if cfg, err = config.Load(cfgPath); err != nil {
			return err
		}
	}

	if savePresetName != "" {
		return savePreset(cfg, cfgPath)
	}

	target := server
	if len(args) == 1 {
		if target != "" {
			return usageErr("both positional target and --server given")
		}
		target = args[0]
	}

	// cross-flag validation, all before any probing
	switch {
	case ptpFlag && ntsFlag:
		return usageErr("--ptp cannot be combined with --nts")
	case pluginFlag && len(compareWith) > 0:
		return usageErr("--plugin cannot be combined with --compare")
	case len(compareWith) == 1:
		return usageErr("--compare needs at least two targets")
	case len(compareWith) > 0 && target != "":
		return usageErr("--compare cannot be combined with a single target")
	case len(compareWith) == 0 && target == "":
		return usageErr("a target is required")
	}

	// thresholds are optional even in plugin mode; with neither set the
	// verdict can only be OK or UNKNOWN
	warning, critical := thresholds(cmd)
	if err := probe.ValidateThresholds(warning, critical); err != nil {
		return err
	}

	outFormat, err := pickFormat(cfg.Defaults)
	if err != nil {
		return err
	}
	applyDefaults(cmd, cfg.Defaults)

	prober, defaultPort := buildProber()
	querier := &probe.Querier{
		Prober:      prober,
		IPv6Only:    ipv6Only,
		Timeout:     time.Duration(timeoutSec * float64(time.Second)),
		DefaultPort: defaultPort,
	}
	sampler := &probe.Sampler{
		Querier: querier,
		Config: probe.SamplerConfig{
			Count:          count,
			Infinite:       infinite,
			Interval:       time.Duration(intervalSec * float64(time.Second)),
			IntervalSet:    cmd.Flags().Changed("interval"),
			RecordFailures: pluginFlag,
		},
	}
	if err := sampler.Config.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case pluginFlag:
		return runPlugin(ctx, sampler, target, warning, critical)
	case len(compareWith) > 0:
		return runCompare(ctx, sampler, outFormat)
	default:
		return runSingle(ctx, sampler, target, outFormat)
	}
}

func multiSample(c probe.SamplerConfig) bool {
	return c.Infinite || c.Count > 1
}

// runSingle probes one target, rendering each sample as it arrives. A
// multi-sample text run prints one line per sample plus a stats block; JSON
// collects everything into one envelope at the end, with the aggregate as a
// separate stats document after it.
func runSingle(ctx context.Context, sampler *probe.Sampler, target, outFormat string) error {
	multi := multiSample(sampler.Config)
	observe := func(m *probe.Measurement) {
		switch outFormat {
		case formatText:
			if multi {
				fmt.Println(render.Short(m))
			} else {
				fmt.Println(render.Measurement(m, verbose))
			}
		case formatSimple:
			fmt.Println(render.Simple(m))
		case formatJSONShort:
			out, err := render.ShortJSON(m, pretty)
			if err != nil {
				log.Errorf("rendering failed: %v", err)
				return
			}
			fmt.Println(out)
		}
	}

	series, err := sampler.Run(ctx, target, observe)
	if err != nil {
		return &exitError{code: probe.ExitCode(err), err: err}
	}

	if outFormat == formatJSON {
		out, jerr := render.JSON(series, verbose, pretty)
		if jerr != nil {
			log.Errorf("rendering failed: %v", jerr)
		} else {
			fmt.Println(out)
		}
	}
	if multi && len(series) > 0 && outFormat != formatJSONShort {
		st, serr := probe.ComputeStats(series)
		if serr != nil {
			return serr
		}
		switch outFormat {
		case formatJSON:
			out, jerr := render.StatsJSON(target, st, pretty)
			if jerr != nil {
				log.Errorf("rendering failed: %v", jerr)
				return nil
			}
			fmt.Println(out)
		default:
			fmt.Println(render.Stats(target, st))
		}
	}
	return nil
}

// runCompare fans out over all targets each iteration. Per-target failures
// are reported inline and never abort the run; the exit code only goes
// non-zero when no target ever produced a sample.
func runCompare(ctx context.Context, sampler *probe.Sampler, outFormat string) error {
	multi := multiSample(sampler.Config)
	var firstErr error
	observe := func(outcomes []probe.Outcome) {
		for _, o := range outcomes {
			if o.Err != nil && firstErr == nil {
				firstErr = o.Err
			}
		}
		switch outFormat {
		case formatText:
			fmt.Print(render.Compare(outcomes))
			if verbose {
				render.CompareTable(os.Stdout, probe.Successes(outcomes))
			}
		case formatSimple, formatJSONShort:
			for _, o := range outcomes {
				if o.Err != nil {
					// keep the json-short stream parseable
					if outFormat == formatJSONShort {
						log.Warnf("%s: %v", o.Target, o.Err)
					} else {
						fmt.Println(render.Failure(o.Target, o.Err))
					}
					continue
				}
				if outFormat == formatSimple {
					fmt.Println(render.Simple(o.Measurement))
					continue
				}
				out, err := render.ShortJSON(o.Measurement, pretty)
				if err != nil {
					log.Errorf("rendering failed: %v", err)
					continue
				}
				fmt.Println(out)
			}
		case formatJSON:
			out, err := render.CompareJSON(outcomes, verbose, pretty)
			if err != nil {
				log.Errorf("rendering failed: %v", err)
				return
			}
			fmt.Println(out)
		}
	}

	all, err := sampler.RunCompare(ctx, compareWith, observe)
	if err != nil {
		return err
	}

	stats := make(map[string]*probe.Stats, len(all))
	total := 0
	for name, series := range all {
		total += len(series)
		if len(series) == 0 {
			continue
		}
		st, serr := probe.ComputeStats(series)
		if serr != nil {
			return serr
		}
		stats[name] = st
	}
	if total == 0 {
		if firstErr != nil {
			return &exitError{code: probe.ExitCode(firstErr), err: firstErr}
		}
		return probe.Errorf(probe.KindOther, "all targets failed")
	}

	if multi {
		printCompareStats(stats, outFormat)
	}
	return nil
}

func printCompareStats(stats map[string]*probe.Stats, outFormat string) {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	if outFormat == formatJSON {
		out, err := render.StatsListJSON(names, stats, pretty)
		if err != nil {
			log.Errorf("rendering failed: %v", err)
			return
		}
		fmt.Println(out)
		return
	}
	for _, name := range names {
		fmt.Println(render.Stats(name, stats[name]))
	}
	if drift, ok := probe.MaxAvgDrift(stats); ok {
		fmt.Println(render.Drift(drift))
	}
}

// runPlugin is monitoring mode: always print one status line, always exit
// with the plugin code. Probe failures degrade to UNKNOWN instead of
// propagating.
func runPlugin(ctx context.Context, sampler *probe.Sampler, target string, warning, critical *float64) error {
	series, err := sampler.Run(ctx, target, nil)
	if err != nil && probe.KindOf(err) == probe.KindUsage {
		return err
	}
	if len(series) == 0 {
		if err != nil {
			log.Debugf("plugin probe failed: %v", err)
		}
		if ptpFlag {
			fmt.Println(probe.PluginUnknownLinePTP(warning, critical))
		} else {
			fmt.Println(probe.PluginUnknownLine(warning, critical))
		}
		return &exitError{code: probe.Unknown.ExitCode()}
	}

	st, serr := probe.ComputeStats(series)
	if serr != nil {
		return serr
	}
	last := series[len(series)-1]

	verdict := evaluateForMode(st, warning, critical)
	if ptpFlag {
		fmt.Println(probe.PluginLinePTP(verdict, st, last.Target.Name, last.Target.IP, warning, critical))
	} else {
		fmt.Println(probe.PluginLine(verdict, st, last.Target.Name, last.Target.IP, warning, critical))
	}
	if verdict == probe.OK {
		return nil
	}
	return &exitError{code: verdict.ExitCode()}
}

// evaluateForMode applies the thresholds in the protocol's native unit:
// milliseconds for NTP, nanoseconds for PTP.
func evaluateForMode(st *probe.Stats, warning, critical *float64) probe.Verdict {
	if !ptpFlag {
		return probe.Evaluate(st, warning, critical)
	}
	ns := *st
	ns.OffsetAvg *= 1e6
	return probe.Evaluate(&ns, warning, critical)
}

// savePreset stores the invocation's arguments (minus --save-preset itself)
// under the given name. Nothing is probed.
func savePreset(cfg *config.Config, path string) error {
	if path == "" {
		return fmt.Errorf("no config location available")
	}
	args := stripSavePreset(os.Args[1:])
	cfg.SetPreset(savePresetName, args)
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Printf("saved preset %q (%d args) to %s\n", savePresetName, len(args), path)
	return nil
}

func stripSavePreset(args []string) []string {
	out := make([]string, 0, len(args))
	skip := false
	for _, a := range args {
		if skip {
			skip = false
			continue
		}
		if a == "--save-preset" {
			skip = true
			continue
		}
		if len(a) > len("--save-preset=") && a[:len("--save-preset=")] == "--save-preset=" {
			continue
		}
		out = append(out, a)
	}
	return out
}
