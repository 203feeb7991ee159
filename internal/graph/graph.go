package graph

func New() *Graph {
	return &Graph{
		graph:      make(map[string][]Transition),
		starting:   make(map[string]bool),
		terminal:   make(map[string]bool),
		validNodes: make(map[string]bool),
	}
}

// Graph is a directed graph of named nodes with labelled edges. Unlike a graph inferred from its edges, starting and
// terminal nodes are declared explicitly as a node may be both reachable and a starting point.
type Graph struct {
	graph      map[string][]Transition
	nodeOrder  []string
	starting   map[string]bool
	terminal   map[string]bool
	validNodes map[string]bool
}

// AddNode registers a node. Nodes are reported in the order they were first seen.
func (g *Graph) AddNode(node string) {
	if g.validNodes[node] {
		return
	}

	g.nodeOrder = append(g.nodeOrder, node)
	g.validNodes[node] = true
}

func (g *Graph) MarkStarting(node string) {
	g.AddNode(node)
	g.starting[node] = true
}

func (g *Graph) MarkTerminal(node string) {
	g.AddNode(node)
	g.terminal[node] = true
}

func (g *Graph) AddTransition(from string, to string, label string) {
	g.AddNode(from)
	g.AddNode(to)
	g.graph[from] = append(g.graph[from], Transition{
		From:  from,
		To:    to,
		Label: label,
	})
}

type Transition struct {
	From  string
	To    string
	Label string
}

type Info struct {
	StartingNodes []string
	TerminalNodes []string
	Transitions   []Transition
}

func (g *Graph) Info() Info {
	var i Info
	for _, node := range g.nodeOrder {
		i.Transitions = append(i.Transitions, g.graph[node]...)

		if g.starting[node] {
			i.StartingNodes = append(i.StartingNodes, node)
		}

		if g.terminal[node] {
			i.TerminalNodes = append(i.TerminalNodes, node)
		}
	}

	return i
}
