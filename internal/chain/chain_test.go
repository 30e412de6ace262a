package chain_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"smartsession/internal/chain"
)

var deployed = common.HexToAddress("0x00000000000000000000000000000000000000aa")

// ethService answers the two calls the client makes.
type ethService struct{}

func (ethService) ChainId() *hexutil.Big { return (*hexutil.Big)(hexutil.MustDecodeBig("0x1fa72edc")) }

func (ethService) GetCode(addr common.Address, _ string) hexutil.Bytes {
	if addr == deployed {
		return hexutil.Bytes{0x60, 0x80}
	}
	return hexutil.Bytes{}
}

func newNode(t *testing.T) string {
	t.Helper()
	srv := rpc.NewServer()
	if err := srv.RegisterName("eth", ethService{}); err != nil {
		t.Fatal(err)
	}
	hs := httptest.NewServer(srv)
	t.Cleanup(func() {
		hs.Close()
		srv.Stop()
	})
	return hs.URL
}

func TestClient_CodeAt_OK(t *testing.T) {
	ctx := context.Background()
	c, err := chain.Dial(ctx, newNode(t))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	code, err := c.CodeAt(ctx, deployed, nil)
	if err != nil || len(code) != 2 {
		t.Fatalf("deployed code = %x err=%v", code, err)
	}
	code, err = c.CodeAt(ctx, common.HexToAddress("0x01"), nil)
	if err != nil || len(code) != 0 {
		t.Fatalf("empty code = %x err=%v", code, err)
	}
}

func TestClient_CheckChain(t *testing.T) {
	ctx := context.Background()
	c, err := chain.Dial(ctx, newNode(t))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.CheckChain(ctx, 531050204); err != nil {
		t.Fatalf("matching chain: %v", err)
	}
	if err := c.CheckChain(ctx, 1); err == nil {
		t.Fatal("expected mismatch error")
	}
}
