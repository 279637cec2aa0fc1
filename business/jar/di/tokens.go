// Package di contains dependency injection tokens for the jar context.
package di

import (
	"github.com/fd1az/feejar-monitor/business/jar/app"
	"github.com/fd1az/feejar-monitor/business/jar/domain"
	"github.com/fd1az/feejar-monitor/business/jar/infra/httpapi"
	"github.com/fd1az/feejar-monitor/internal/di"
	"github.com/fd1az/feejar-monitor/internal/wsconn"
)

// Public service tokens - exposed to other modules
var (
	JarService = di.NewToken[*app.JarService]("jar.JarService")
	Hub        = di.NewToken[*wsconn.Hub]("jar.Hub")
)

// Private dependency tokens - internal to jar module
var (
	Engine        = di.NewToken[*domain.Engine]("jar:engine")
	BalanceReader = di.NewToken[app.BalanceReader]("jar:balanceReader")
	ReleaseReader = di.NewToken[app.ReleaseReader]("jar:releaseReader")
	Discoverer    = di.NewToken[app.TokenDiscoverer]("jar:discoverer")
	ClaimEncoder  = di.NewToken[app.ClaimEncoder]("jar:claimEncoder")
	Handler       = di.NewToken[*httpapi.Handler]("jar:handler")
)

func GetJarService(c di.ServiceRegistry) *app.JarService {
	return di.GetToken(c, JarService)
}

func GetHub(c di.ServiceRegistry) *wsconn.Hub {
	return di.GetToken(c, Hub)
}

func GetEngine(c di.ServiceRegistry) *domain.Engine {
	return di.GetToken(c, Engine)
}

func GetBalanceReader(c di.ServiceRegistry) app.BalanceReader {
	return di.GetToken(c, BalanceReader)
}

func GetReleaseReader(c di.ServiceRegistry) app.ReleaseReader {
	return di.GetToken(c, ReleaseReader)
}

func GetDiscoverer(c di.ServiceRegistry) app.TokenDiscoverer {
	return di.GetToken(c, Discoverer)
}

func GetClaimEncoder(c di.ServiceRegistry) app.ClaimEncoder {
	return di.GetToken(c, ClaimEncoder)
}

func GetHandler(c di.ServiceRegistry) *httpapi.Handler {
	return di.GetToken(c, Handler)
}
