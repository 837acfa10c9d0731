package protocolids

import "testing"

func TestVersions(t *testing.T) {
	if got := ProtocolVersion("v0.1.0"); got != "/margo/0.1.0" {
		t.Errorf("ProtocolVersion = %q", got)
	}
	if got := AgentVersion("0.1.0"); got != "go-margo/0.1.0" {
		t.Errorf("AgentVersion = %q", got)
	}
}

func TestIsNodeProtocol(t *testing.T) {
	for _, p := range []string{Identify, Ping} {
		if !IsNodeProtocol(p) {
			t.Errorf("%s 应属于节点协议", p)
		}
	}
	for _, p := range []string{Noise, Yamux} {
		if IsNodeProtocol(p) {
			t.Errorf("%s 不应属于节点协议", p)
		}
	}
}
