// Package export renders factor graphs and simulation traces to files: a
// JSON description of a graph's variables and factors, and PNG plots of
// joint trajectories.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"go.mechdyn.dev/dyngraph/dynamics"
	"go.mechdyn.dev/dyngraph/factor"
)

// GraphNode is one variable of an exported graph. Location is a grid hint
// for renderers: x advances with the time step, y separates variable roles.
type GraphNode struct {
	Name string     `json:"name"`
	Role string     `json:"role"`
	ID   int        `json:"id"`
	Time int        `json:"time"`
	Loc  [2]float64 `json:"location"`
}

// roleRows orders variable roles top to bottom in the exported grid.
var roleRows = map[byte]float64{
	dynamics.RoleAngle:       0,
	dynamics.RoleVel:         1,
	dynamics.RoleAccel:       2,
	dynamics.RoleTorque:      3,
	dynamics.RoleWrench:      4,
	dynamics.RoleContact:     5,
	dynamics.RolePose:        6,
	dynamics.RoleTwist:       7,
	dynamics.RoleTwistAccel:  8,
	dynamics.RolePhaseLength: 9,
}

// GraphFactor is one factor of an exported graph, referencing its variables
// by name.
type GraphFactor struct {
	Type string   `json:"type"`
	Keys []string `json:"keys"`
}

// GraphDoc is the JSON shape of an exported graph.
type GraphDoc struct {
	Nodes   []GraphNode   `json:"nodes"`
	Factors []GraphFactor `json:"factors"`
}

// GraphJSON serializes the graph's structure, variables and the factors
// connecting them, for external visualization.
func GraphJSON(g *factor.Graph) ([]byte, error) {
	doc := GraphDoc{}
	for _, k := range g.Keys() {
		doc.Nodes = append(doc.Nodes, GraphNode{
			Name: dynamics.DescribeKey(k),
			Role: string(k.Role),
			ID:   int(k.ID),
			Time: int(k.T),
			Loc:  [2]float64{float64(k.T), roleRows[k.Role]},
		})
	}
	for _, f := range g.Factors() {
		gf := GraphFactor{Type: factorTypeName(f)}
		for _, k := range f.Keys() {
			gf.Keys = append(gf.Keys, dynamics.DescribeKey(k))
		}
		doc.Factors = append(doc.Factors, gf)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// SaveGraphJSON writes the graph's JSON description to a file.
func SaveGraphJSON(g *factor.Graph, path string) error {
	data, err := GraphJSON(g)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "writing graph json")
	}
	return nil
}

func factorTypeName(f factor.Factor) string {
	name := fmt.Sprintf("%T", f)
	name = strings.TrimPrefix(name, "*")
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
