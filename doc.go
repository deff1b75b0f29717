/*
Package sequencer implements a SCORM 2004 Sequencing & Navigation engine.

A course's imsmanifest.xml is parsed once into an immutable activity tree;
each learner attempt gets a sequencing session whose state machine decides,
on every navigation request, which activity to deliver next or whether to
terminate. The Service facade ties the manifest parser, the navigation
engine, and the session store together for hosts (HTTP server, CLI).

	store := memory.New()
	svc := sequencer.New(store)
	tree, err := svc.RegisterCourse("course-1", manifestXML)
	sess, nav, err := svc.CreateSession(ctx, "learner-1", "course-1")
	resp, err := svc.Navigate(ctx, sess.ID, sequencing.Request{Type: sequencing.RequestStart})

Sequencing logic lives in pkg/sequencing; persistence adapters live under
internal/adapters.
*/
package sequencer
