package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	simruntime "github.com/simforge/sim-runtime"
	"github.com/simforge/sim-runtime/modgen"
	simrt "github.com/simforge/sim-runtime/runtime"
)

func sampleModules() map[string][]byte {
	return map[string][]byte{
		"thermostat":  modgen.Thermostat(modgen.DefaultThermostat()),
		"springmass":  modgen.SpringMass(modgen.DefaultSpringMass()),
		"accumulator": modgen.Accumulator(),
	}
}

func newRunCmd() *cobra.Command {
	var (
		dt       float64
		duration float64
		sets     []string
		plotVar  string
	)
	cmd := &cobra.Command{
		Use:   "run [module]",
		Short: "run a module headless for a fixed duration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			reg, err := simrt.NewRegistry(ctx, registryOptions(cfg, log))
			if err != nil {
				return err
			}
			defer reg.Close(ctx)

			desc, err := reg.Load(ctx, args[0])
			if err != nil {
				return err
			}
			inst, err := reg.Instantiate(ctx, desc)
			if err != nil {
				return err
			}
			defer reg.Release(ctx, inst)

			if err := applySets(cmd, inst, sets); err != nil {
				return err
			}

			plotSlot, haveSlot, err := pickPlotVar(desc, plotVar)
			if err != nil {
				return err
			}

			stepper := simrt.NewStepper(log)
			steps := int(duration / dt)
			samples := make([]float64, 0, steps)
			for i := 0; i < steps; i++ {
				if err := stepper.Step(ctx, inst, dt); err != nil {
					fmt.Fprintf(os.Stderr, "step %d: %v\n", i, err)
					if inst.Status() == simruntime.Failed {
						break
					}
					continue
				}
				if haveSlot {
					v, err := inst.Get(ctx, plotSlot)
					if err != nil {
						return err
					}
					samples = append(samples, v.Real)
				}
			}

			fmt.Printf("module %s: t=%.3fs, %d steps, status %s\n\n",
				desc.Name(), inst.SimulatedTime(), inst.StepCount(), inst.Status())

			if len(samples) > 1 && term.IsTerminal(int(os.Stdout.Fd())) {
				fmt.Println(asciigraph.Plot(samples,
					asciigraph.Height(12),
					asciigraph.Caption(plotSlot.Name)))
				fmt.Println()
			}

			if inst.Status() != simruntime.Failed {
				outs, err := inst.Outputs(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				for _, o := range outs {
					fmt.Fprintf(w, "%s\t%s\n", o.Name, o.Value)
				}
				w.Flush()
			} else if rec, ok := reg.Sink().Last(inst.ID()); ok {
				fmt.Printf("last error: %v\n", rec.Err)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&dt, "dt", 0, "timestep (default from config)")
	cmd.Flags().Float64Var(&duration, "time", 10, "simulated duration in seconds")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "set an input or parameter, name=value")
	cmd.Flags().StringVar(&plotVar, "plot", "", "real output to plot (default: first)")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if dt <= 0 {
			if cfg, err := loadConfig(); err == nil {
				dt = cfg.DefaultDt
			} else {
				dt = simrt.DefaultTimestep
			}
		}
	}
	return cmd
}

// applySets parses repeated --set name=value flags and writes them through
// name resolution, so type and direction checking comes for free.
func applySets(cmd *cobra.Command, inst *simrt.Instance, sets []string) error {
	for _, s := range sets {
		name, raw, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("malformed --set %q, want name=value", s)
		}
		val, err := parseValue(inst.Descriptor(), name, raw)
		if err != nil {
			return err
		}
		if err := inst.Set(cmd.Context(), mustResolve(inst.Descriptor(), name, val.Type), val); err != nil {
			return err
		}
	}
	return nil
}

// parseValue interprets raw according to the variable's declared type.
func parseValue(desc *simrt.Descriptor, name, raw string) (simruntime.Value, error) {
	for _, v := range desc.Variables() {
		if v.Name != name {
			continue
		}
		switch v.Type {
		case simruntime.Real:
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return simruntime.Value{}, fmt.Errorf("%s: %w", name, err)
			}
			return simruntime.RealValue(f), nil
		case simruntime.Boolean:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return simruntime.Value{}, fmt.Errorf("%s: %w", name, err)
			}
			return simruntime.BoolValue(b), nil
		case simruntime.Integer:
			n, err := strconv.ParseInt(raw, 10, 32)
			if err != nil {
				return simruntime.Value{}, fmt.Errorf("%s: %w", name, err)
			}
			return simruntime.IntValue(int32(n)), nil
		}
	}
	return simruntime.Value{}, fmt.Errorf("module declares no variable %q", name)
}

func mustResolve(desc *simrt.Descriptor, name string, t simruntime.VarType) simrt.Slot {
	slot, err := desc.Resolve(name, t)
	if err != nil {
		// parseValue already matched the declared type
		panic(err)
	}
	return slot
}

// pickPlotVar returns the slot to sample for plotting: the named variable,
// or the first Real output when name is empty. No Real output means no plot.
func pickPlotVar(desc *simrt.Descriptor, name string) (simrt.Slot, bool, error) {
	if name != "" {
		slot, err := desc.Resolve(name, simruntime.Real)
		if err != nil {
			return simrt.Slot{}, false, err
		}
		return slot, true, nil
	}
	for _, v := range desc.Variables() {
		if v.Type == simruntime.Real && v.Direction == simruntime.Output {
			slot, err := desc.Resolve(v.Name, simruntime.Real)
			if err != nil {
				return simrt.Slot{}, false, err
			}
			return slot, true, nil
		}
	}
	return simrt.Slot{}, false, nil
}

func printVariables(w *os.File, desc *simrt.Descriptor) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tDIRECTION\tINDEX\tSTART")
	for _, v := range desc.Variables() {
		start := "-"
		if v.HasStart {
			start = v.Start.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", v.Name, v.Type, v.Direction, v.Index, start)
	}
	tw.Flush()
}
