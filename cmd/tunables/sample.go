// FILE: lixenwraith/tunable/cmd/tunables/sample.go
package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/lixenwraith/tunable"
	"github.com/lixenwraith/tunable/task"
)

type edge struct {
	Source string
	Target string
	Weight float64
}

// memNetwork is a small in-memory graph standing in for a host network.
type memNetwork struct {
	suid  int64
	name  string
	edges []edge
}

func (n *memNetwork) SUID() int64  { return n.suid }
func (n *memNetwork) Name() string { return n.name }

func sampleNetwork() *memNetwork {
	return &memNetwork{
		suid: 52,
		name: "galFiltered",
		edges: []edge{
			{"YKR026C", "YGL122C", 0.91},
			{"YGR218W", "YGL097W", 0.42},
			{"YGL097W", "YOR204W", 0.77},
			{"YLR249W", "YPR080W", 0.18},
			{"YLR249W", "YBR118W", 0.63},
			{"YLR293C", "YGL097W", 0.55},
			{"YMR146C", "YDR429C", 0.08},
		},
	}
}

type filterOptions struct {
	Threshold float64  `tunable:"name=threshold,description='Minimum edge weight',gravity=1,groups=Filter"`
	Inclusive bool     `tunable:"name=inclusive,description='Keep edges equal to the threshold',gravity=2,groups=Filter"`
	Nodes     []string `tunable:"name=nodes,description='Restrict to edges touching these nodes',gravity=3,groups=Filter,dependsOn=threshold"`
}

type reportOptions struct {
	Format  string        `tunable:"name=format,description='Report format',params=text|csv,gravity=10,groups=Report"`
	Limit   int           `tunable:"name=limit,description='Maximum edges listed, 0 for all',gravity=11,groups=Report"`
	Timeout time.Duration `tunable:"name=timeout,description='Time allowed for the report',gravity=12,groups=Report,context=nogui"`
}

// FilterContext holds the parameters of the edge filter, shared by every
// task the factory creates.
type FilterContext struct {
	Filter filterOptions `tunable:"contains,name=filter"`
	Report reportOptions `tunable:"contains,name=report"`

	label string
}

func newFilterContext() *FilterContext {
	return &FilterContext{
		Filter: filterOptions{Threshold: 0.5, Inclusive: true},
		Report: reportOptions{Format: "text", Timeout: 5 * time.Second},
		label:  "filtered",
	}
}

func (c *FilterContext) Annotations() []tunable.MethodAnnotation {
	return []tunable.MethodAnnotation{
		tunable.TitleMethod("Title"),
		tunable.TunableMethod("GetLabel", "name=label,description='Name of the resulting edge list',gravity=0"),
	}
}

func (c *FilterContext) Title() string    { return "Edge Filter" }
func (c *FilterContext) GetLabel() string { return c.label }

func (c *FilterContext) SetLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("label must not be empty")
	}
	c.label = label
	return nil
}

// EdgeFilterTask prints the edges of a network passing the filter.
type EdgeFilterTask struct {
	Context *FilterContext `tunable:"contains,inline"`

	network *memNetwork
	out     io.Writer
}

func (t *EdgeFilterTask) Annotations() []tunable.MethodAnnotation {
	return []tunable.MethodAnnotation{tunable.TitleMethod("Title")}
}

func (t *EdgeFilterTask) Title() string {
	return fmt.Sprintf("Filter edges of %s", t.network.name)
}

func (t *EdgeFilterTask) Run(ctx context.Context) error {
	opts := t.Context
	if opts.Report.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Report.Timeout)
		defer cancel()
	}

	nodes := make(map[string]bool, len(opts.Filter.Nodes))
	for _, n := range opts.Filter.Nodes {
		nodes[n] = true
	}

	var kept []edge
	for _, e := range t.network.edges {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.Weight < opts.Filter.Threshold || (!opts.Filter.Inclusive && e.Weight == opts.Filter.Threshold) {
			continue
		}
		if len(nodes) > 0 && !nodes[e.Source] && !nodes[e.Target] {
			continue
		}
		kept = append(kept, e)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Weight > kept[j].Weight })
	if opts.Report.Limit > 0 && len(kept) > opts.Report.Limit {
		kept = kept[:opts.Report.Limit]
	}

	switch opts.Report.Format {
	case "csv":
		fmt.Fprintln(t.out, "source,target,weight")
		for _, e := range kept {
			fmt.Fprintf(t.out, "%s,%s,%g\n", e.Source, e.Target, e.Weight)
		}
	case "text", "":
		fmt.Fprintf(t.out, "%s: %d of %d edges\n", opts.label, len(kept), len(t.network.edges))
		for _, e := range kept {
			fmt.Fprintf(t.out, "  %s -> %s (%g)\n", e.Source, e.Target, e.Weight)
		}
	default:
		return fmt.Errorf("unknown report format %q", opts.Report.Format)
	}
	return nil
}

// EdgeFilterTaskFactory creates one EdgeFilterTask for the current network.
type EdgeFilterTaskFactory struct {
	task.NetworkTaskFactory

	Context *FilterContext
	out     io.Writer
}

func newEdgeFilterTaskFactory(out io.Writer) *EdgeFilterTaskFactory {
	return &EdgeFilterTaskFactory{Context: newFilterContext(), out: out}
}

func (f *EdgeFilterTaskFactory) CreateTaskIterator() (*task.Iterator, error) {
	network, ok := f.Network().(*memNetwork)
	if !ok {
		return nil, fmt.Errorf("unsupported network %T", f.Network())
	}
	return task.NewIterator(&EdgeFilterTask{Context: f.Context, network: network, out: f.out}), nil
}
