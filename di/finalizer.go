package di

import (
	"fmt"
	"reflect"

	"github.com/gocrud/inject/logging"
)

type strategyKind int

const (
	strategyNew strategyKind = iota
	strategyResolve
	strategyInstance
	strategyMethod
	strategyFactory
	strategySubContainer
	strategyProvider
)

func (k strategyKind) String() string {
	switch k {
	case strategyNew:
		return "FromNew"
	case strategyResolve:
		return "FromResolve"
	case strategyInstance:
		return "FromInstance"
	case strategyMethod:
		return "FromMethod"
	case strategyFactory:
		return "FromFactory"
	case strategySubContainer:
		return "FromSubContainerResolve"
	case strategyProvider:
		return "FromProvider"
	}
	return fmt.Sprintf("strategy(%d)", int(k))
}

// bindStrategy 描述 From* 选择的构造方式
type bindStrategy struct {
	kind strategyKind
	// specific 参与单例声明的比较：方法、工厂类型、实例等
	specific any
	// track 为 false 时缓存的实例不在 Dispose 时释放
	track bool
	// validate 校验单个具体类型
	validate func(concrete reflect.Type) error
	// newProvider 每次 finalize 调用一次，返回为具体类型创建原始 provider 的函数
	newProvider func(info *BindInfo, scope Scope) func(concrete reflect.Type) Provider
}

func newStrategy() *bindStrategy {
	return &bindStrategy{
		kind:  strategyNew,
		track: true,
		validate: func(concrete reflect.Type) error {
			if isAbstract(concrete) {
				return &InvalidBindError{Concrete: concrete, Reason: "cannot instantiate an interface type, use To or a From* strategy"}
			}
			return nil
		},
		newProvider: func(info *BindInfo, _ Scope) func(reflect.Type) Provider {
			return func(concrete reflect.Type) Provider {
				return &transientProvider{concrete: concrete, args: info.Arguments}
			}
		},
	}
}

// bindStatement 是一条 Bind 语句，Finalize 时转换为注册表中的条目
type bindStatement struct {
	info     *BindInfo
	strategy *bindStrategy
	err      error
}

func (s *bindStatement) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// finalize 把语句注册到容器 c。调用方持有 c.mu。
//
// 合约集合为空时什么也不做，这样 BindInterfacesTo 在没有匹配接口时可以安全地省略。
func (s *bindStatement) finalize(c *Container) error {
	if s.err != nil {
		return s.err
	}
	info := s.info
	if len(info.ContractTypes) == 0 {
		c.logger.Debug("di: skip binding without contracts", logging.Field{Key: "context", Value: info.ContextInfo})
		return nil
	}

	strategy := s.strategy
	if strategy == nil {
		strategy = newStrategy()
	}
	if strategy.newProvider == nil {
		return &BinderStateError{Op: strategy.kind.String(), Reason: "construction source was not completed"}
	}

	scope := info.Scope
	if scope == ScopeUnset {
		if info.RequireExplicitScope {
			return &ScopeRequiredError{Contracts: info.ContractTypes, ContextInfo: info.ContextInfo}
		}
		scope = ScopeTransient
	}

	concretes := info.concreteTypes()
	if info.ToChoice == ToConcrete && len(concretes) == 0 {
		return &EmptyConcreteTypesError{Contracts: info.ContractTypes}
	}
	if strategy.validate != nil {
		for _, concrete := range concretes {
			if err := strategy.validate(concrete); err != nil {
				return err
			}
		}
	}

	pairs, err := s.pairs(c.invalidBindResponse(info.InvalidBindResponse))
	if err != nil {
		return err
	}

	create := strategy.newProvider(info, scope)
	caches := make(map[reflect.Type]*cachedProvider)

	// providerFor 按作用域为具体类型选择 provider，缓存在同一个绑定的合约之间共享
	providerFor := func(concrete reflect.Type) (Provider, *cachedProvider, error) {
		if p, ok := caches[concrete]; ok {
			return p, p, nil
		}
		switch {
		case scope == ScopeSingleton:
			key := singletonKey{concrete: concrete, identifier: info.ConcreteIdentifier}
			decl := singletonDecl{kind: strategy.kind, specific: strategy.specific, args: info.Arguments}
			p, err := c.singletons.get(key, decl, func() *cachedProvider {
				return newCachedProvider(c, create(concrete), strategy.track)
			})
			if err != nil {
				return nil, nil, err
			}
			caches[concrete] = p
			return p, p, nil
		case strategy.kind == strategyInstance:
			// 实例本身就是身份，无需缓存
			return create(concrete), nil, nil
		case scope == ScopeCached:
			p := newCachedProvider(c, create(concrete), strategy.track)
			caches[concrete] = p
			return p, p, nil
		default:
			return create(concrete), nil, nil
		}
	}

	regs := make([]*registration, 0, len(pairs))
	for _, pair := range pairs {
		p, cache, err := providerFor(pair.concrete)
		if err != nil {
			return err
		}
		regs = append(regs, &registration{
			id:        BindingId{Type: pair.contract, Identifier: info.Identifier},
			condition: info.Condition,
			provider:  p,
			cache:     cache,
			owner:     c,
		})
	}
	for _, reg := range regs {
		c.addRegistration(reg)
	}

	if info.NonLazy {
		for _, contract := range info.ContractTypes {
			c.addRegistration(&registration{
				id:       BindingId{Type: anyType, Identifier: DependencyRootIdentifier},
				provider: &resolveProvider{target: contract, identifier: info.Identifier},
				owner:    c,
			})
		}
	}

	c.logger.Debug("di: binding finalized",
		logging.Field{Key: "contracts", Value: typeNames(info.ContractTypes)},
		logging.Field{Key: "strategy", Value: strategy.kind.String()},
		logging.Field{Key: "scope", Value: scope.String()},
		logging.Field{Key: "registrations", Value: len(regs)},
		logging.Field{Key: "nonLazy", Value: info.NonLazy},
	)
	return nil
}

type bindPair struct {
	contract reflect.Type
	concrete reflect.Type
}

// pairs 展开 (合约 × 具体类型) 并校验兼容性
func (s *bindStatement) pairs(response InvalidBindResponse) ([]bindPair, error) {
	info := s.info
	var pairs []bindPair
	for _, contract := range info.ContractTypes {
		if info.ToChoice == ToSelf {
			pairs = append(pairs, bindPair{contract: contract, concrete: contract})
			continue
		}
		for _, concrete := range info.ToTypes {
			if !derivesFromOrEqual(concrete, contract) {
				if response == InvalidBindSkip {
					continue
				}
				return nil, &InvalidBindError{Concrete: concrete, Contract: contract, Reason: "concrete type is not assignable to the contract"}
			}
			pairs = append(pairs, bindPair{contract: contract, concrete: concrete})
		}
	}
	return pairs, nil
}
