package registry

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/config"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
)

// BuilderFunc returns (enabled, component, error). enabled=false skips registration.
type BuilderFunc func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error)

// Builder holds metadata.
type Builder struct {
	Name string
	Fn   BuilderFunc
	// Auto: 名称与构建期依赖由组件实例及其 infra 标签推断
	Auto bool
	// Deps 构建期依赖, 决定 builder 的执行顺序
	Deps []string

	prebuilt   core.Component
	preEnabled bool
}

// Registry 组件 builder 集合; 包级函数操作默认实例.
type Registry struct {
	mu       sync.Mutex
	builders []*Builder
	runtime  map[string][]string
}

func New() *Registry { return &Registry{runtime: map[string][]string{}} }

var defaultRegistry = New()

// Default 返回 init() 注册所使用的全局实例.
func Default() *Registry { return defaultRegistry }

func Register(name string, fn BuilderFunc) { defaultRegistry.Register(name, fn) }

func RegisterWithDeps(name string, deps []string, fn BuilderFunc) {
	defaultRegistry.RegisterWithDeps(name, deps, fn)
}

func RegisterAuto(fn BuilderFunc) { defaultRegistry.RegisterAuto(fn) }

func ExtendRuntimeDependencies(target string, deps ...string) {
	defaultRegistry.ExtendRuntimeDependencies(target, deps...)
}

func BuildAndRegisterAll(cfg *config.AppConfig, c *core.Container) error {
	return defaultRegistry.BuildAndRegisterAll(cfg, c)
}

func (r *Registry) find(name string) *Builder {
	for _, b := range r.builders {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Register registers a builder with an explicit name and no build-time deps.
func (r *Registry) Register(name string, fn BuilderFunc) { r.RegisterWithDeps(name, nil, fn) }

// RegisterWithDeps registers a builder that must run after the builders named in deps,
// typically because fn resolves them from the container.
func (r *Registry) RegisterWithDeps(name string, deps []string, fn BuilderFunc) {
	if name == "" || fn == nil {
		panic("registry: empty name or nil builder")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.find(name) != nil {
		panic("registry: duplicate builder name " + name)
	}
	r.builders = append(r.builders, &Builder{Name: name, Fn: fn, Deps: append([]string(nil), deps...)})
}

// RegisterAuto registers a builder whose component name and build-time deps are inferred.
// fn must construct a component with a stable non-empty Name().
func (r *Registry) RegisterAuto(fn BuilderFunc) {
	r.mu.Lock()
	r.builders = append(r.builders, &Builder{Auto: true, Fn: fn})
	r.mu.Unlock()
}

// ExtendRuntimeDependencies 声明 target 额外依赖 deps, 只影响启动/停止顺序, 不影响构建顺序.
// 需在 BuildAndRegisterAll 之前调用.
func (r *Registry) ExtendRuntimeDependencies(target string, deps ...string) {
	if target == "" || len(deps) == 0 {
		return
	}
	r.mu.Lock()
	r.runtime[target] = append(r.runtime[target], deps...)
	r.mu.Unlock()
}

// BuildAndRegisterAll
//  1. 预构建 auto builder 以推断名称
//  2. 从 infra:"dep:<name>" 标签推断构建期依赖
//  3. 按依赖拓扑排序
//  4. 构建并注册, 最后应用运行时依赖扩展
func (r *Registry) BuildAndRegisterAll(cfg *config.AppConfig, c *core.Container) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.builders {
		if !b.Auto || b.Name != "" {
			continue
		}
		enabled, comp, err := b.Fn(cfg, c)
		if err != nil {
			return fmt.Errorf("auto builder failed: %w", err)
		}
		if !enabled || comp == nil {
			continue
		}
		name := comp.Name()
		if name == "" {
			return fmt.Errorf("auto builder produced unnamed component")
		}
		if existing := r.find(name); existing != nil && existing != b {
			return fmt.Errorf("duplicate inferred name: %s", name)
		}
		b.Name, b.prebuilt, b.preEnabled = name, comp, true
		for _, d := range inferTagDependencies(comp) {
			if r.find(d) != nil {
				b.Deps = append(b.Deps, d)
			}
		}
	}

	ordered, err := topoSortBuilders(r.builders)
	if err != nil {
		return err
	}
	for _, b := range ordered {
		var (
			enabled bool
			comp    core.Component
		)
		if b.Auto {
			enabled, comp = b.preEnabled, b.prebuilt
		} else if enabled, comp, err = b.Fn(cfg, c); err != nil {
			return fmt.Errorf("build %s failed: %w", b.Name, err)
		}
		if !enabled || comp == nil {
			continue
		}
		if err := c.Register(b.Name, comp); err != nil {
			return fmt.Errorf("register %s failed: %w", b.Name, err)
		}
	}
	return r.applyRuntimeDeps(c)
}

type depAdder interface{ AddDependencies(...string) }

func (r *Registry) applyRuntimeDeps(c *core.Container) error {
	targets := make([]string, 0, len(r.runtime))
	for t := range r.runtime {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	for _, target := range targets {
		if !c.Has(target) {
			continue
		}
		comp, _ := c.Resolve(target)
		adder, ok := comp.(depAdder)
		if !ok {
			return fmt.Errorf("component %s does not support AddDependencies", target)
		}
		adder.AddDependencies(r.runtime[target]...)
	}
	return nil
}

// inferTagDependencies extracts component names from `infra:"dep:<name>"` tags; a trailing '?' marks optional.
func inferTagDependencies(comp core.Component) []string {
	v := reflect.ValueOf(comp)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	t := v.Type()
	seen := map[string]bool{}
	var out []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, ok := strings.CutPrefix(f.Tag.Get("infra"), "dep:")
		if f.PkgPath != "" || !ok {
			continue
		}
		name := strings.TrimSuffix(strings.TrimSpace(tag), "?")
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// topoSortBuilders Kahn 排序, 同层按名称排序保证确定性; 未命名 (禁用的 auto) builder 被忽略.
func topoSortBuilders(list []*Builder) ([]*Builder, error) {
	byName := map[string]*Builder{}
	inDeg := map[string]int{}
	adj := map[string][]string{}
	for _, b := range list {
		if b.Name != "" {
			byName[b.Name] = b
			inDeg[b.Name] = 0
		}
	}
	for _, b := range list {
		if b.Name == "" {
			continue
		}
		for _, d := range b.Deps {
			if _, ok := byName[d]; !ok || d == b.Name {
				continue
			}
			adj[d] = append(adj[d], b.Name)
			inDeg[b.Name]++
		}
	}
	var ready []string
	for n, d := range inDeg {
		if d == 0 {
			ready = append(ready, n)
		}
	}
	var ordered []*Builder
	for len(ready) > 0 {
		sort.Strings(ready)
		n := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byName[n])
		for _, next := range adj[n] {
			if inDeg[next]--; inDeg[next] == 0 {
				ready = append(ready, next)
			}
		}
	}
	if len(ordered) != len(byName) {
		var cyc []string
		for n, d := range inDeg {
			if d > 0 {
				cyc = append(cyc, n)
			}
		}
		sort.Strings(cyc)
		return nil, fmt.Errorf("registry: cyclic builder deps: %v", cyc)
	}
	return ordered, nil
}
