package di

import (
	"reflect"
)

// FromFactory 通过工厂创建实例。factoryType 必须有方法 Create() (T, error)；
// 接口类型的工厂从容器解析，其余按构造配方创建（可配合 WithArguments）。
// 无类型工厂无法推断生命周期，必须显式指定作用域。
func (b *Binder) FromFactory(factoryType reflect.Type) *Binder {
	return b.fromFactory("FromFactory", factoryType, true)
}

// FromFactoryOf 是带类型的工厂绑定，TFactory 的 Create 返回 TConcrete，不要求显式作用域
func FromFactoryOf[TConcrete any, TFactory TypedFactory[TConcrete]](b *Binder) *Binder {
	return b.fromFactory("FromFactoryOf", TypeOf[TFactory](), false)
}

func (b *Binder) fromFactory(op string, factoryType reflect.Type, requireScope bool) *Binder {
	strategy := &bindStrategy{
		kind:     strategyFactory,
		specific: factoryType,
		track:    true,
		newProvider: func(info *BindInfo, _ Scope) func(reflect.Type) Provider {
			return func(reflect.Type) Provider {
				return &factoryProvider{factoryType: factoryType, args: info.Arguments}
			}
		},
	}
	if !b.from(op, strategy) {
		return b
	}
	b.info().RequireExplicitScope = requireScope

	if factoryType == nil {
		b.stmt.fail(&InvalidBindError{Reason: op + " requires a factory type"})
		return b
	}
	produced, err := factoryProduct(factoryType)
	if err != nil {
		b.stmt.fail(err)
		return b
	}
	if err := b.checkProducedType(produced); err != nil {
		b.stmt.fail(err)
	}
	return b
}
