package graph

import (
	"sort"
	"strings"
)

// FindPaths returns every route from sourceServer to targetServer as a
// slice of edge compound keys, shortest first. maxHops <= 0 falls back to
// the configured default. A route never revisits a server, so cyclic edge
// sets terminate.
func (g *Graph) FindPaths(sourceServer, targetServer string, maxHops int) [][]string {
	if sourceServer == targetServer {
		return nil
	}
	if maxHops <= 0 {
		maxHops = g.opts.MaxHops
	}

	bySource := make(map[string][]*Edge)
	for _, edge := range g.Edges() {
		bySource[edge.SourceServer] = append(bySource[edge.SourceServer], edge)
	}
	// Stable expansion order regardless of storage order.
	for _, edges := range bySource {
		sort.Slice(edges, func(i, j int) bool { return edges[i].Key() < edges[j].Key() })
	}

	type frame struct {
		server string
		path   []string
	}

	var paths [][]string
	stack := []frame{{server: sourceServer}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if len(top.path) >= maxHops {
			continue
		}
		for _, edge := range bySource[top.server] {
			if edge.TargetServer == sourceServer || pathVisits(top.path, edge.TargetServer) {
				continue
			}

			next := make([]string, len(top.path)+1)
			copy(next, top.path)
			next[len(top.path)] = edge.Key()

			if edge.TargetServer == targetServer {
				paths = append(paths, next)
				continue
			}
			stack = append(stack, frame{server: edge.TargetServer, path: next})
		}
	}

	sort.Slice(paths, func(i, j int) bool {
		if len(paths[i]) != len(paths[j]) {
			return len(paths[i]) < len(paths[j])
		}
		return strings.Join(paths[i], "|") < strings.Join(paths[j], "|")
	})
	return paths
}

// FindPath returns the shortest route from sourceServer to targetServer,
// or nil when no route exists.
func (g *Graph) FindPath(sourceServer, targetServer string, maxHops int) []string {
	paths := g.FindPaths(sourceServer, targetServer, maxHops)
	if len(paths) == 0 {
		return nil
	}
	return paths[0]
}

// pathVisits reports whether any edge on the path already lands on the
// given server. Keys look like "src.op->dst.op"; the target server is the
// segment between "->" and the next dot.
func pathVisits(path []string, server string) bool {
	for _, key := range path {
		idx := strings.Index(key, "->")
		if idx < 0 {
			continue
		}
		target := key[idx+2:]
		if dot := strings.Index(target, "."); dot >= 0 && target[:dot] == server {
			return true
		}
	}
	return false
}
