// Package autowire 基于结构体标签的字段注入.
//
// 标签格式: `infra:"dep:<component_name>"`, 以 '?' 结尾表示可选 (缺失时跳过).
// 字段必须导出; 注入成功后把依赖追加到组件的运行时依赖, 保证启动顺序.
package autowire

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
)

type runtimeDepAdder interface {
	AddDependencies(...string)
}

// InjectAll 对容器内所有组件执行注入.
func InjectAll(c *core.Container) error {
	registered := c.ListRegistered()
	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	sort.Strings(names)
	var errs []string
	for _, name := range names {
		if err := Inject(c, registered[name]); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("autowire errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func Inject(c *core.Container, comp core.Component) error {
	if comp == nil {
		return nil
	}
	val := reflect.ValueOf(comp)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return nil
	}
	val = val.Elem()
	adder, _ := comp.(runtimeDepAdder)
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		name, ok := strings.CutPrefix(field.Tag.Get("infra"), "dep:")
		if field.PkgPath != "" || !ok {
			continue
		}
		name = strings.TrimSpace(name)
		optional := strings.HasSuffix(name, "?")
		name = strings.TrimSuffix(name, "?")
		if name == "" {
			continue
		}
		fv := val.Field(i)
		if !fv.IsZero() {
			// 已手动设置 (测试或构造函数), 不覆盖
			if adder != nil {
				adder.AddDependencies(name)
			}
			continue
		}
		resolved, err := c.Resolve(name)
		if err != nil {
			if optional {
				continue
			}
			return fmt.Errorf("resolve %s failed: %w", name, err)
		}
		if err := assignValue(fv, resolved); err != nil {
			return fmt.Errorf("assign %s -> field %s failed: %w", name, field.Name, err)
		}
		if adder != nil {
			adder.AddDependencies(name)
		}
	}
	return nil
}

func assignValue(dst reflect.Value, src interface{}) error {
	if !dst.CanSet() {
		return fmt.Errorf("destination not settable")
	}
	sv := reflect.ValueOf(src)
	switch {
	case dst.Kind() == reflect.Interface && sv.Type().Implements(dst.Type()):
		dst.Set(sv)
	case sv.Type().AssignableTo(dst.Type()):
		dst.Set(sv)
	default:
		return fmt.Errorf("incompatible types: %s -> %s", sv.Type(), dst.Type())
	}
	return nil
}
