package di

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultRecipeCacheSize = 256

// Dependency 描述构造某个类型所需的一个依赖
type Dependency struct {
	Type       reflect.Type
	Identifier any
	Optional   bool
}

// Recipe 是某个具体类型的构造方式：先按 Deps 解析依赖，再调用 Construct。
// Construct 收到的 args 与 Deps 一一对应，可选依赖缺失时对应位置为 nil。
type Recipe struct {
	Concrete  reflect.Type
	Deps      []Dependency
	Construct func(args []any) (any, error)
}

// build 解析依赖并构造实例。extra 是 WithArguments 提供的额外参数，
// 未命名的依赖优先按类型从中取值，每个参数只能使用一次且必须被使用。
func (r *Recipe) build(ctx *InjectContext, extra []any) (any, error) {
	used := make([]bool, len(extra))
	values := make([]any, len(r.Deps))

	for i, dep := range r.Deps {
		if dep.Identifier == nil {
			if j := matchArgument(dep.Type, extra, used); j >= 0 {
				values[i] = extra[j]
				used[j] = true
				continue
			}
		}
		if dep.Type == injectContextType {
			values[i] = ctx
			continue
		}

		sub := ctx.child(dep, r.Concrete)
		v, err := sub.Container.resolveSingle(sub)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	for j, ok := range used {
		if !ok {
			return nil, fmt.Errorf("%w: argument of type %T was not used while constructing %v",
				ErrResolution, extra[j], r.Concrete)
		}
	}

	obj, err := r.Construct(values)
	if err != nil {
		return nil, constructionError(r.Concrete, err)
	}
	return obj, nil
}

func matchArgument(t reflect.Type, args []any, used []bool) int {
	for i, arg := range args {
		if used[i] || arg == nil {
			continue
		}
		if reflect.TypeOf(arg).AssignableTo(t) {
			return i
		}
	}
	return -1
}

// recipeBook 保存显式注册的构造函数，并用 LRU 缓存按结构体推导出的配方
type recipeBook struct {
	mu       sync.RWMutex
	parent   *recipeBook
	explicit map[reflect.Type]*Recipe
	derived  *lru.Cache[reflect.Type, *Recipe]
}

func newRecipeBook(size int) *recipeBook {
	if size <= 0 {
		size = defaultRecipeCacheSize
	}
	cache, err := lru.New[reflect.Type, *Recipe](size)
	if err != nil {
		// 只有 size <= 0 时才会出错
		panic(err)
	}
	return &recipeBook{
		explicit: make(map[reflect.Type]*Recipe),
		derived:  cache,
	}
}

// child 创建子容器使用的配方表：显式注册互不影响，推导缓存共享
func (b *recipeBook) child() *recipeBook {
	return &recipeBook{
		parent:   b,
		explicit: make(map[reflect.Type]*Recipe),
		derived:  b.derived,
	}
}

func (b *recipeBook) register(r *Recipe) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.explicit[r.Concrete] = r
}

func (b *recipeBook) explicitRecipe(t reflect.Type) (*Recipe, bool) {
	for cur := b; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		r, ok := cur.explicit[t]
		cur.mu.RUnlock()
		if ok {
			return r, true
		}
	}
	return nil, false
}

// lookup 返回类型 t 的配方：显式构造函数优先，否则按结构体字段推导
func (b *recipeBook) lookup(t reflect.Type) (*Recipe, error) {
	if r, ok := b.explicitRecipe(t); ok {
		return r, nil
	}
	if r, ok := b.derived.Get(t); ok {
		return r, nil
	}
	r, err := deriveStructRecipe(t)
	if err != nil {
		return nil, err
	}
	b.derived.Add(t, r)
	return r, nil
}

// recipeFromConstructor 把构造函数转换为配方。
// 支持 func(deps...) T 与 func(deps...) (T, error)，参数即依赖。
func recipeFromConstructor(fn any) (*Recipe, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("di: constructor must be a non-nil function, got %T", fn)
	}
	t := v.Type()
	if err := checkFuncResults(t); err != nil {
		return nil, err
	}
	if t.IsVariadic() {
		return nil, fmt.Errorf("di: variadic constructor %v is not supported", t)
	}

	deps := make([]Dependency, t.NumIn())
	for i := range deps {
		deps[i] = Dependency{Type: t.In(i)}
	}

	return &Recipe{
		Concrete: t.Out(0),
		Deps:     deps,
		Construct: func(args []any) (any, error) {
			return callFunc(v, toValues(t, args))
		},
	}, nil
}

// deriveStructRecipe 为结构体或结构体指针推导配方：
// reflect.New 创建对象，然后注入带 `di` 标签的导出字段。
//
// 标签格式：
//
//	Repo  Repository `di:""`              // 按类型注入
//	Main  *sql.DB    `di:"main"`          // 按标识符注入
//	Cache Cache      `di:"?"`             // 可选
//	Audit Logger     `di:"audit,optional"`
func deriveStructRecipe(t reflect.Type) (*Recipe, error) {
	structType, isPtr := t, false
	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct {
		structType, isPtr = t.Elem(), true
	}
	if structType.Kind() != reflect.Struct {
		return nil, &InvalidBindError{Concrete: t, Reason: "no construction recipe; register a constructor or use FromMethod"}
	}

	var deps []Dependency
	var indices [][]int
	for i := 0; i < structType.NumField(); i++ {
		f := structType.Field(i)
		tag, ok := f.Tag.Lookup("di")
		if !ok {
			continue
		}
		if !f.IsExported() {
			return nil, &InvalidBindError{Concrete: t, Reason: fmt.Sprintf("field %s has a di tag but is not exported", f.Name)}
		}
		deps = append(deps, parseFieldTag(f.Type, tag))
		indices = append(indices, f.Index)
	}

	return &Recipe{
		Concrete: t,
		Deps:     deps,
		Construct: func(args []any) (any, error) {
			obj := reflect.New(structType)
			for i, idx := range indices {
				if args[i] == nil {
					continue
				}
				obj.Elem().FieldByIndex(idx).Set(reflect.ValueOf(args[i]))
			}
			if isPtr {
				return obj.Interface(), nil
			}
			return obj.Elem().Interface(), nil
		},
	}, nil
}

func parseFieldTag(t reflect.Type, tag string) Dependency {
	dep := Dependency{Type: t}
	if tag == "?" {
		dep.Optional = true
		return dep
	}
	parts := strings.Split(tag, ",")
	if name := strings.TrimSpace(parts[0]); name != "" {
		dep.Identifier = name
	}
	for _, opt := range parts[1:] {
		if o := strings.TrimSpace(opt); o == "optional" || o == "?" {
			dep.Optional = true
		}
	}
	return dep
}

// checkFuncResults 要求函数返回 T 或 (T, error)
func checkFuncResults(t reflect.Type) error {
	switch {
	case t.NumOut() == 1:
		return nil
	case t.NumOut() == 2 && t.Out(1) == errorType:
		return nil
	}
	return fmt.Errorf("di: function %v must return T or (T, error)", t)
}

func toValues(fnType reflect.Type, args []any) []reflect.Value {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(fnType.In(i))
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}
	return in
}

// callFunc 调用函数并拆出 (T, error)
func callFunc(fn reflect.Value, in []reflect.Value) (any, error) {
	results := fn.Call(in)
	if len(results) == 2 && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	return results[0].Interface(), nil
}
