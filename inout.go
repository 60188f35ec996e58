package ioc

import "go.uber.org/dig"

// In marks a parameter object. When a constructor takes a single struct
// parameter embedding In, each exported field of that struct is resolved as
// a bean and the struct is passed in.
//
// Supported field tags:
//   - `name:"beanName"` - resolve this bean instead of the one named after the field type
//   - `optional:"true"` - leave the field at its zero value if the bean is not registered
//   - `inject:"-"` - skip the field
//
// Example:
//
//	type ServiceParams struct {
//	    ioc.In
//
//	    Dao    *OrderDao
//	    Mailer *Mailer `name:"smtpMailer" optional:"true"`
//	}
//
//	func NewOrderService(p ServiceParams) *OrderService {
//	    return &OrderService{dao: p.Dao, mailer: p.Mailer}
//	}
//
// In must be embedded anonymously.
type In = dig.In
