package auth

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	sqlxadapter "github.com/memwey/casbin-sqlx-adapter"
)

// Roles used as casbin subjects. Each role inherits the permissions of the next:
// admin -> user -> guest.
const (
	RoleGuest = "guest"
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// modelText matches request paths with keyMatch2 ("/api/products/:id", "/api/*") and
// methods with regexMatch, so one admin rule can cover every verb.
const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// NewSQLAdapter creates a casbin adapter that stores policies in the casbin_rule table
// of the application's database.
func NewSQLAdapter(driverName, dsn string) persist.Adapter {
	opts := &sqlxadapter.AdapterOptions{
		DriverName:     driverName,
		DataSourceName: dsn,
		TableName:      "casbin_rule",
	}
	return sqlxadapter.NewAdapterFromOptions(opts)
}

// NewEnforcer creates a casbin enforcer for the route model. With a nil adapter the
// policies live only in memory.
func NewEnforcer(adapter persist.Adapter) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	if adapter == nil {
		return casbin.NewEnforcer(m)
	}

	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	return enforcer, nil
}
