package di

import "reflect"

// BindInfo 是一条绑定语句收集到的全部参数，由 Binder 填充，Finalize 时消费
type BindInfo struct {
	ContractTypes []reflect.Type
	ToTypes       []reflect.Type
	ToChoice      ToChoice

	Identifier         any
	ConcreteIdentifier any
	Condition          Condition
	Arguments          []any

	Scope                Scope
	RequireExplicitScope bool

	NonLazy                  bool
	CopyIntoAllSubContainers bool
	InvalidBindResponse      InvalidBindResponse

	// ContextInfo 出现在错误信息里，帮助定位绑定声明的位置
	ContextInfo string
}

// concreteTypes 返回需要注册的具体类型列表
func (info *BindInfo) concreteTypes() []reflect.Type {
	if info.ToChoice == ToSelf {
		return info.ContractTypes
	}
	return info.ToTypes
}
