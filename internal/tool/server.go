// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverName = "rxverify"

// Register adds every rxverify tool to server.
func (s *Service) Register(server *mcp.Server) {
	mcp.AddTool(server, MetadataExtractPrescription, s.ExtractPrescription)
	mcp.AddTool(server, MetadataValidateMedicine, s.ValidateMedicineTool)
}

// NewServer returns an MCP server with the rxverify tools registered.
func NewServer(s *Service, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)
	s.Register(server)
	return server
}
