package sequencer_test

import (
	"context"
	"fmt"
	"log"

	sequencer "github.com/scormlab/sequencer"
	"github.com/scormlab/sequencer/internal/adapters/memory"
	"github.com/scormlab/sequencer/pkg/sequencing"
)

const exampleManifest = `<?xml version="1.0" encoding="UTF-8"?>
<manifest identifier="intro" version="1.0"
    xmlns="http://www.imsglobal.org/xsd/imscp_v1p1"
    xmlns:imsss="http://www.imsglobal.org/xsd/imsss">
  <organizations default="org1">
    <organization identifier="org1">
      <title>Intro Course</title>
      <imsss:sequencing>
        <imsss:controlMode flow="true"/>
      </imsss:sequencing>
      <item identifier="welcome" identifierref="res-1">
        <title>Welcome</title>
      </item>
      <item identifier="wrap-up" identifierref="res-2">
        <title>Wrap Up</title>
      </item>
    </organization>
  </organizations>
  <resources>
    <resource identifier="res-1" href="welcome.html"/>
    <resource identifier="res-2" href="wrap-up.html"/>
  </resources>
</manifest>`

// ExampleService demonstrates driving a full course session as a library,
// without the HTTP server.
func ExampleService() {
	ctx := context.Background()
	svc := sequencer.New(memory.New())

	// 1. Parse the manifest into an activity tree, shared by all sessions.
	if _, err := svc.RegisterCourse("intro", []byte(exampleManifest)); err != nil {
		log.Fatal(err)
	}

	// 2. One session per learner attempt.
	sess, _, err := svc.CreateSession(ctx, "learner-1", "intro")
	if err != nil {
		log.Fatal(err)
	}

	// 3. Start, then flow through the course.
	resp, err := svc.Navigate(ctx, sess.ID, sequencing.Request{Type: sequencing.RequestStart})
	if err != nil {
		log.Fatal(err)
	}
	for resp.Instruction != nil && resp.Instruction.Type == sequencing.InstructionDelivery {
		fmt.Println(resp.Instruction.Href)
		resp, err = svc.Navigate(ctx, sess.ID, sequencing.Request{Type: sequencing.RequestContinue})
		if err != nil {
			log.Fatal(err)
		}
	}
	fmt.Println(resp.Instruction.Type)

	// Output:
	// welcome.html
	// wrap-up.html
	// termination
}
