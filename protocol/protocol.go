// Package protocol pins down the runner wire contract: the header names,
// the content-type namespace, method-to-path routing, and the multipart
// framing for multi-argument calls.
package protocol

import (
	"fmt"
	"mime"
	"strings"
)

// Request and response header names.
const (
	HeaderPayloadMeta         = "Payload-Meta"
	HeaderPayloadContainer    = "Payload-Container"
	HeaderBatchSize           = "Batch-Size"
	HeaderArgsNumber          = "Args-Number"
	HeaderBentoName           = "Bento-Name"
	HeaderBentoVersion        = "Bento-Version"
	HeaderRunnerName          = "Runner-Name"
	HeaderDeploymentName      = "Yatai-Bento-Deployment-Name"
	HeaderDeploymentNamespace = "Yatai-Bento-Deployment-Namespace"
)

// ContentTypePrefix is the registered namespace for payload content types;
// the container tag is the suffix: application/vnd.bentoml.<container>.
const ContentTypePrefix = "application/vnd.bentoml."

// DefaultMethod is the designated method name that routes to the root path.
const DefaultMethod = "__call__"

// ContentTypeFor builds the content type declaring a container tag.
func ContentTypeFor(container string) string {
	return ContentTypePrefix + container
}

// ContainerFromContentType extracts the container tag from a response
// content type. Content types outside the registered namespace are an error:
// they mean the remote did not produce a conformant response.
func ContainerFromContentType(contentType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("malformed content type %q: %w", contentType, err)
	}
	mediaType = strings.ToLower(mediaType)
	if !strings.HasPrefix(mediaType, ContentTypePrefix) {
		return "", fmt.Errorf("content type %q outside the %s namespace", contentType, strings.TrimSuffix(ContentTypePrefix, "."))
	}
	container := strings.TrimPrefix(mediaType, ContentTypePrefix)
	if container == "" {
		return "", fmt.Errorf("content type %q carries no container tag", contentType)
	}
	return container, nil
}

// MethodPath maps a method name onto the request path. The default method
// routes to the root.
func MethodPath(method string) string {
	if method == "" || method == DefaultMethod {
		return "/"
	}
	return "/" + method
}
