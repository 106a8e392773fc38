package router

import (
	"sort"

	"github.com/gin-gonic/gin"
)

// A module implements any of these; Registry dispatches by type.
type PublicModule interface{ MountPublic(*gin.RouterGroup) }
type APIModule interface{ MountAPI(*gin.RouterGroup) }
type AdminModule interface{ MountAdmin(*gin.RouterGroup) }

// Modules without a Priority mount at 100; lower mounts first.
type prioritizer interface{ Priority() int }

type Registry struct {
	public []PublicModule
	api    []APIModule
	admin  []AdminModule
}

func NewRegistry(mods ...any) *Registry {
	r := &Registry{}
	for _, m := range mods {
		r.Register(m)
	}
	return r
}

func (r *Registry) Register(mod any) {
	if m, ok := mod.(PublicModule); ok {
		r.public = append(r.public, m)
	}
	if m, ok := mod.(APIModule); ok {
		r.api = append(r.api, m)
	}
	if m, ok := mod.(AdminModule); ok {
		r.admin = append(r.admin, m)
	}
}

func (r *Registry) MountPublic(g *gin.RouterGroup) {
	for _, m := range byPriority(r.public) {
		m.MountPublic(g)
	}
}

func (r *Registry) MountAPI(g *gin.RouterGroup) {
	for _, m := range byPriority(r.api) {
		m.MountAPI(g)
	}
}

func (r *Registry) MountAdmin(g *gin.RouterGroup) {
	for _, m := range byPriority(r.admin) {
		m.MountAdmin(g)
	}
}

func byPriority[M any](mods []M) []M {
	out := append([]M(nil), mods...)
	sort.SliceStable(out, func(i, j int) bool { return priorityOf(out[i]) < priorityOf(out[j]) })
	return out
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
